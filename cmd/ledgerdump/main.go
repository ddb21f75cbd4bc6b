// Command ledgerdump parses a journal file and dumps the resulting object
// graph, for debugging the loader.
package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/alecthomas/repr"

	"github.com/ledgerpipe/ledgerpipe/journal"
	"github.com/ledgerpipe/ledgerpipe/loader"
)

var cli struct {
	File string `help:"Journal file to parse." arg:"" type:"existingfile"`
}

// dump mirrors the journal without the back-pointers that make the real
// graph cyclic, so repr can walk it.
type dump struct {
	Xacts     []xactDump
	Periodics []string
}

type xactDump struct {
	Date     string
	State    string
	Code     string
	Payee    string
	Note     string
	Tags     map[string]string
	Postings []postDump
}

type postDump struct {
	Account string
	Amount  string
	Flags   journal.PostFlags
	Note    string
	Tags    map[string]string
}

func main() {
	ctx := kong.Parse(&cli)

	j, err := loader.New(loader.WithFollowIncludes()).Load(context.Background(), cli.File)
	ctx.FatalIfErrorf(err)

	repr.Println(project(j))
}

func project(j *journal.Journal) dump {
	var d dump
	for _, x := range j.Xacts {
		xd := xactDump{
			Date:  x.Date.String(),
			State: x.State.String(),
			Code:  x.Code,
			Payee: x.Payee,
			Note:  x.Note,
			Tags:  x.Tags,
		}
		for _, p := range x.Postings {
			xd.Postings = append(xd.Postings, postDump{
				Account: p.Account.FullName(),
				Amount:  p.Amount.String(),
				Flags:   p.Flags,
				Note:    p.Note,
				Tags:    p.Tags,
			})
		}
		d.Xacts = append(d.Xacts, xd)
	}
	for _, px := range j.PeriodXacts {
		d.Periodics = append(d.Periodics, px.PeriodText)
	}
	return d
}
