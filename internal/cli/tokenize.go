package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vinicius-lino-figueiredo/gedbql"
)

// TokenizeResult is the outcome of the tokenize command.
type TokenizeResult struct {
	Text     string            `json:"text"`
	CacheKey string            `json:"cache_key"`
	Strings  map[string]string `json:"strings"`
	Numbers  map[string]string `json:"numbers"`
	Tokens   []string          `json:"tokens"`
	Inline   string            `json:"inline"`
}

// NewTokenizeCommand creates the tokenize command.
func NewTokenizeCommand(rootOpts *RootOptions) *cobra.Command {
	var params map[string]string

	cmd := &cobra.Command{
		Use:   "tokenize <query>",
		Short: "Show how a statement is cleaned and split into tokens",
		Long: `Clean a statement the way the engine does before parsing it.

Comments are removed, string and number literals are replaced by
placeholders and whitespace is collapsed. The cache key is the hash of the
cleaned text, so statements differing only in literals share it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokenize(rootOpts, args[0], params, cmd)
		},
	}

	cmd.Flags().StringToStringVarP(&params, "param", "p", nil, "parameter values (name=value)")

	return cmd
}

func runTokenize(opts *RootOptions, query string, params map[string]string, cmd *cobra.Command) error {
	db, err := newEngine(opts, cmd)
	if err != nil {
		return err
	}

	values := make(map[string]gedbql.Value, len(params))
	for k, v := range params {
		values[k] = gedbql.NewValue(v)
	}

	tok, err := db.Tokenize(query, values)
	if err != nil {
		return err
	}

	lits := tok.Literals()
	res := TokenizeResult{
		Text:     tok.Text(),
		CacheKey: tok.CacheKey(),
		Strings:  lits.Strings,
		Numbers:  lits.Numbers,
		Inline:   tok.Inline(tok.Text()),
	}
	for token := tok.Next(); token != ""; token = tok.Next() {
		res.Tokens = append(res.Tokens, token)
	}

	if opts.Format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return writeTokenizeText(cmd.OutOrStdout(), res)
}

func writeTokenizeText(w io.Writer, res TokenizeResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, "text: %s\n", res.Text)
	fmt.Fprintf(&b, "key: %s\n", res.CacheKey)
	writeTable(&b, "strings", res.Strings)
	writeTable(&b, "numbers", res.Numbers)
	fmt.Fprintf(&b, "tokens: %s\n", strings.Join(res.Tokens, " | "))
	fmt.Fprintf(&b, "inline: %s\n", res.Inline)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeTable(b *strings.Builder, name string, table map[string]string) {
	b.WriteString(name + ":\n")
	for _, k := range slices.Sorted(maps.Keys(table)) {
		fmt.Fprintf(b, "  %s = %s\n", k, table[k])
	}
}
