// Command grammardump builds a small sample grammar and prints its
// productions (and, with -v, its NULLABLE/FIRST/FOLLOW tables), then
// prints the size and frozen state of a small sample stream. It runs
// no parse and uses no Sink.
package main

import (
	"flag"
	"fmt"
	"os"

	corepg "github.com/spicy-lang/corepg"
)

func sampleUnit() *corepg.UnitDecl {
	// A minimal TLV-ish record: a one-byte tag, a length-prefixed
	// payload, repeated until end of data.
	record := &corepg.UnitDecl{
		ID: "Record",
		Fields: []*corepg.Field{
			{ID: "tag", Type: corepg.ParseInteger},
			{ID: "length", Type: corepg.ParseInteger},
			{
				ID:   "payload",
				Type: corepg.ParseBytes,
				Attrs: corepg.FieldAttrs{
					Size: &corepg.Expr{Label: "self.length"},
				},
			},
		},
	}

	return &corepg.UnitDecl{
		ID: "Records",
		Fields: []*corepg.Field{
			{
				ID:   "records",
				Type: corepg.ParseVector,
				Item: &corepg.Field{ID: "record", Type: corepg.ParseUnit, Unit: record},
				Attrs: corepg.FieldAttrs{
					Eod: true,
				},
			},
		},
	}
}

func main() {
	verbose := flag.Bool("v", false, "print NULLABLE/FIRST/FOLLOW tables")
	flag.Parse()

	cfg, err := corepg.LoadConfigFromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "loading config:", err)
		os.Exit(1)
	}
	_ = cfg

	builder := corepg.NewGrammarBuilder()
	g, err := builder.Build(sampleUnit())
	if err != nil {
		fmt.Fprintln(os.Stderr, "building grammar:", err)
		os.Exit(1)
	}

	if _, err := g.WriteTo(os.Stdout, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "writing grammar:", err)
		os.Exit(1)
	}

	stream := corepg.NewStreamFromBytes([]byte{0x01, 0x04, 'd', 'a', 't', 'a'})
	stream.Freeze()
	view := stream.View()
	fmt.Printf("\nsample stream: %d bytes, frozen=%v\n", view.Size(), stream.IsFrozen())
}
