package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/USA-RedDragon/upmyfee/internal/rewrite"
	"github.com/davecgh/go-spew/spew"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
)

const affirmative = "yes"

// Console prompts the user over a reader/writer pair.
type Console struct {
	in  *bufio.Reader
	out io.Writer
	// fd is the terminal behind in, or -1 when in is not a terminal.
	fd int
}

func New(in io.Reader, out io.Writer) *Console {
	fd := -1
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}
	return &Console{
		in:  bufio.NewReader(in),
		out: out,
		fd:  fd,
	}
}

func (c *Console) ShowSummary(plan rewrite.Plan) {
	t := table.NewWriter()
	t.SetOutputMirror(c.out)
	t.AppendRow(table.Row{"Transaction ID", plan.TxID})
	t.AppendRow(table.Row{"Payer address", plan.Payer})
	t.AppendRow(table.Row{"New recipient", plan.Recipient})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Original fee", plan.OriginalFee.String()})
	t.AppendRow(table.Row{"New fee", plan.NewFee.String()})
	t.AppendRow(table.Row{"Fee difference", plan.FeeDelta.String()})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Original amount", plan.OriginalPayerAmount.String()})
	t.AppendRow(table.Row{"New amount", plan.NewPayerAmount.String()})
	t.Render()
}

func (c *Console) ShowTransaction(label string, tx any) {
	fmt.Fprintf(c.out, "%s:\n", label)
	cfg := spew.ConfigState{
		Indent:                  "  ",
		DisablePointerAddresses: true,
		DisableCapacities:       true,
		SortKeys:                true,
	}
	cfg.Fdump(c.out, tx)
}

func (c *Console) ShowSignedHex(hex string) {
	fmt.Fprintln(c.out, "HEX of signed transaction:")
	fmt.Fprintln(c.out, hex)
	fmt.Fprintln(c.out, "You can decode and broadcast this transaction with any other node or push service.")
}

// Confirm asks a yes/no question. Anything but "yes", including end of input,
// is a no.
func (c *Console) Confirm(question string) (bool, error) {
	fmt.Fprintf(c.out, "%s (yes/no): ", question)
	answer, err := c.readLine()
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	if !strings.EqualFold(strings.TrimSpace(answer), affirmative) {
		fmt.Fprintln(c.out, "Exit.")
		return false, nil
	}
	return true, nil
}

// Passphrase reads a secret without echoing it when the input is a terminal.
func (c *Console) Passphrase(question string) (string, error) {
	fmt.Fprintf(c.out, "%s: ", question)
	if c.fd >= 0 {
		passphrase, err := term.ReadPassword(c.fd)
		fmt.Fprintln(c.out)
		if err != nil {
			return "", fmt.Errorf("failed to read passphrase: %w", err)
		}
		return string(passphrase), nil
	}

	passphrase, err := c.readLine()
	if err != nil && (err != io.EOF || passphrase == "") {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return strings.TrimRight(passphrase, "\r\n"), nil
}

func (c *Console) readLine() (string, error) {
	return c.in.ReadString('\n')
}
