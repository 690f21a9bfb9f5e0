package clientcli

import (
	"io"

	"github.com/manifoldco/promptui"
)

// PromptPIN asks for a PIN on the terminal, masking the input. stdin and
// stdout may be nil to use the process's terminal.
func PromptPIN(label string, stdin io.ReadCloser, stdout io.WriteCloser) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Mask:  '*',
		Validate: func(input string) error {
			if !IsValidPIN(input) {
				return ErrPINFormat
			}
			return nil
		},
		Stdin:  stdin,
		Stdout: stdout,
	}

	return prompt.Run()
}
