package email

const (
	subjectUnassignedLeadFmt = "Заявка без менеджера: %s, %s"
)
