package register

// Topics published by the Store on its core.MessageBus.
const (
	TopicParentAdded      = "register.parent.added"
	TopicParentDeleted    = "register.parent.deleted"
	TopicChildSaved       = "register.child.saved"
	TopicChildDeleted     = "register.child.deleted"
	TopicDocumentUploaded = "register.document.uploaded"
	TopicDocumentDeleted  = "register.document.deleted"
	TopicError            = "register.error"
)

type (
	ParentEvent struct {
		Key            AnnualKey
		AcademicYearID int
	}

	ChildEvent struct {
		Key   AnnualKey
		Kind  ChildKind
		Index int
		ID    int
	}

	ErrorEvent struct {
		Op      string
		Key     string // empty when the operation did not target a register
		Message string
		Err     error
	}
)
