package chunker

import "fmt"

// ConfigError reports an invalid invocation parameter.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InputError reports unusable input text.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return "invalid input_text: " + e.Reason
}
