package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v2"

	"github.com/iziplay/pubmed-records/pkg/artifact"
)

func inspect(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return cli.Exit("expected exactly one artifact", 1)
	}
	path := c.Args().First()

	opts, err := artifact.OptionsForName(path)
	if err != nil {
		return cli.Exit(err, 1)
	}

	f, err := os.Open(path)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer f.Close()

	recs, err := artifact.ReadRecords(bufio.NewReader(f), opts)
	if err != nil {
		return cli.Exit(fmt.Errorf("cannot read %s: %w", path, err), 1)
	}

	if limit := c.Int("limit"); limit > 0 && limit < len(recs) {
		recs = recs[:limit]
	}

	w := bufio.NewWriter(os.Stdout)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return w.Flush()
}
