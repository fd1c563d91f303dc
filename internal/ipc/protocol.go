package ipc

// Request is one control command sent to the session owner.
type Request struct {
	Command string `json:"command"`
	Arg     string `json:"arg,omitempty"`
}

// Response carries the command outcome plus a snapshot of the published session state.
type Response struct {
	OK          bool   `json:"ok"`
	State       string `json:"state,omitempty"`
	Message     string `json:"message,omitempty"`
	Error       string `json:"error,omitempty"`
	Reference   string `json:"reference,omitempty"`
	Translation string `json:"translation,omitempty"`
	Quote       string `json:"quote,omitempty"`
	Loading     bool   `json:"loading,omitempty"`
	Supported   *bool  `json:"supported,omitempty"`
}
