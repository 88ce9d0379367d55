package model

// ComposedMessage is one job's rendered notification output for a single run.
type ComposedMessage struct {
	Subject         string
	PlainBody       string
	HTMLBody        string
	AttachmentPaths []string
}

// Empty reports whether the message carries no content worth delivering.
func (m ComposedMessage) Empty() bool {
	return m.Subject == "" && m.PlainBody == "" && m.HTMLBody == ""
}
