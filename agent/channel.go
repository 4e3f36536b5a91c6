package agent

// Channel is the user-facing sink of one conversation
type Channel interface {
	// ThoughtToken receives reasoning output as it streams
	ThoughtToken(token string)
	// StartMessage opens a visible reply before its first token
	StartMessage()
	Token(token string)
	// EndMessage finalizes the reply with its full text
	EndMessage(text string)
	ToolStart(rec ToolCallRecord)
	ToolEnd(rec ToolCallRecord, output string, err error)
	Notice(text string)
}

// NopChannel discards everything
type NopChannel struct{}

func (NopChannel) ThoughtToken(string)                   {}
func (NopChannel) StartMessage()                         {}
func (NopChannel) Token(string)                          {}
func (NopChannel) EndMessage(string)                     {}
func (NopChannel) ToolStart(ToolCallRecord)              {}
func (NopChannel) ToolEnd(ToolCallRecord, string, error) {}
func (NopChannel) Notice(string)                         {}

var _ Channel = NopChannel{}
