package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// DefaultEmulateFiles seeds the emulate form's spec list.
const DefaultEmulateFiles = "a,b,c,d,e,f"

// form is a vertical stack of text inputs with one focused field
type form struct {
	inputs []textinput.Model
	labels []string
	focus  int
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Width = 40
	ti.Prompt = "› "
	return ti
}

func newForm(labels []string, inputs []textinput.Model) form {
	f := form{inputs: inputs, labels: labels}
	f.setFocus(0)
	return f
}

func (f *form) setFocus(i int) {
	if len(f.inputs) == 0 {
		return
	}
	f.focus = (i + len(f.inputs)) % len(f.inputs)
	for j := range f.inputs {
		if j == f.focus {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
}

func (f *form) nextField() { f.setFocus(f.focus + 1) }
func (f *form) prevField() { f.setFocus(f.focus - 1) }

func (f *form) value(i int) string {
	return strings.TrimSpace(f.inputs[i].Value())
}

func (f *form) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f form) view() string {
	var b strings.Builder
	for i, in := range f.inputs {
		label := dimStyle.Render(f.labels[i])
		if i == f.focus {
			label = selectedStyle.Render(f.labels[i])
		}
		b.WriteString(label + "\n" + in.View() + "\n\n")
	}
	return b.String()
}

func newAuthForm() form {
	email := newInput("you@example.com", 128)
	password := newInput("password", 128)
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	return newForm([]string{"Email", "Password"}, []textinput.Model{email, password})
}

func newKeyForm() form {
	return newForm([]string{"Key name"}, []textinput.Model{newInput("ci-runner", 64)})
}

func newEmulateForm() form {
	project := newInput("project name", 128)
	files := newInput(DefaultEmulateFiles, 2048)
	return newForm([]string{"Project", "Spec files (comma separated)"}, []textinput.Model{project, files})
}

func newMachineForm() form {
	machine := newInput("default", 64)
	machine.SetValue("default")
	return newForm([]string{"Machine"}, []textinput.Model{machine})
}
