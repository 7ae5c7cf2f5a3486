package models

// Model is implemented by every type with invariants that must hold before it is sent or stored.
type Model interface {
	Validate() error
}

// Reference identifies the CRM record (doctype + name) that owns a set of events.
type Reference struct {
	Doctype string `json:"ref_doctype"`
	Docname string `json:"ref_docname"`
}

// String renders the reference as "Doctype/Docname".
func (r Reference) String() string {
	return r.Doctype + "/" + r.Docname
}

// IsZero reports whether either half of the reference is missing.
func (r Reference) IsZero() bool {
	return r.Doctype == "" || r.Docname == ""
}
