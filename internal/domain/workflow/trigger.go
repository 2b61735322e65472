package workflow

// Trigger represents an action that can cause a state transition
type Trigger string

const (
	TriggerSubmit   Trigger = "SUBMIT"
	TriggerValidate Trigger = "VALIDATE"
	TriggerReject   Trigger = "REJECT"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
