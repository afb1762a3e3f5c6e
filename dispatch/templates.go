package dispatch

// Templates are the outcome-selected feedback formats. Placeholders use Go
// template syntax: {{.Filename}}, {{.Content}}, {{.Entry}}, {{.Limit}},
// {{.Files}}, {{.Extensions}}, {{.Detail}}. The {NAME}/{USER} identity
// placeholders are substituted before rendering. The defaults keep the
// terminal wire flavor the agent's system prompt documents. Custom templates
// must not contain a literal "{{" outside an action.
type Templates struct {
	ReadSuccess  string
	ReadNotFound string
	ReadError    string

	AppendSuccess  string
	AppendCapacity string
	PushNotFound   string

	OverwriteSuccess  string
	OverwriteCapacity string

	DeleteEntrySuccess  string
	DeleteEntryNotFound string
	DeleteEntryError    string

	CreateSuccess          string
	CreateExists           string
	CreateInvalidExtension string
	CreateCapacity         string
	CreateError            string

	DeleteSuccess  string
	DeleteNotFound string
	DeleteError    string

	PathEscape     string
	WrongFileClass string
}

// DefaultTemplates returns the built-in feedback formats.
func DefaultTemplates() Templates {
	return Templates{
		ReadSuccess:  "{Terminal: reading-file[{{.Filename}}][CURRENT-CONTENT: {{.Content}}]}",
		ReadNotFound: "{Terminal: requested-file-error[{{.Filename}}: File does not exist.]}",
		ReadError:    "{Terminal: requested-file-error[{{.Filename}}: Could not read file.]}",

		AppendSuccess: "{Terminal: appended-to-file[{{.Filename}}[entry-{{.Entry}}]]}",
		AppendCapacity: "{Terminal: file-update-failed-capacity-exceeded[{{.Filename}}]} => " +
			"{urgent-action-required: You must delete an old entry to make space for your new update. " +
			"To delete an entry, use the format '{ {{.Filename}}-entry-[number]-delete }'. " +
			"The current content is: {{.Content}}}",
		PushNotFound: "{Terminal: file-update-failed[{{.Filename}}: File does not exist. " +
			"You must create it first using '{ create-file-{{.Filename}} }'.]}",

		OverwriteSuccess:  "{Terminal: file-overwritten[{{.Filename}}]}",
		OverwriteCapacity: "{Terminal: file-update-failed-capacity-exceeded[{{.Filename}}: limit {{.Limit}} characters]}",

		DeleteEntrySuccess:  "{Terminal: deleted-entry[{{.Entry}}-from-{{.Filename}}]}",
		DeleteEntryNotFound: "{Terminal: delete-failed-entry-not-found[{{.Entry}}-from-{{.Filename}}]}",
		DeleteEntryError:    "{Terminal: file-delete-error[{{.Filename}}: Could not delete entry.]}",

		CreateSuccess: "{Terminal: file-created[{{.Filename}}]}",
		CreateExists:  "{Terminal: file-creation-failed[{{.Filename}}: File already exists.]}",
		CreateInvalidExtension: "{Terminal: file-creation-failed[{{.Filename}}: Invalid file extension. " +
			"Allowed extensions are: {{.Extensions}}]}",
		CreateCapacity: "{Terminal: file-creation-failed[{{.Filename}}: Cannot create file. " +
			"File limit of {{.Limit}} reached. You must delete an existing file to make space. " +
			"Current files: {{.Files}}]}",
		CreateError: "{Terminal: file-creation-failed[{{.Filename}}: Could not create file.]}",

		DeleteSuccess:  "{Terminal: file-deleted[{{.Filename}}]}",
		DeleteNotFound: "{Terminal: file-deletion-failed[{{.Filename}}: File does not exist.]}",
		DeleteError:    "{Terminal: file-deletion-failed[{{.Filename}}: Could not delete file.]}",

		PathEscape:     "{Terminal: file-access-denied[{{.Filename}}: Invalid file name.]}",
		WrongFileClass: "{Terminal: file-operation-failed[{{.Filename}}: {{.Detail}}]}",
	}
}
