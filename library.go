/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/drilonhametaj25/milionario-game/stories"
)

func loadLibrary(cfg *Config) (*stories.Library, error) {
	library, err := stories.Load(cfg.stories)
	if err != nil {
		return nil, fmt.Errorf("load stories: %w", err)
	}

	if _, err := library.Get(stories.DefaultSlug); err != nil {
		return nil, err
	}

	for _, s := range library.List() {
		logf(cfg, "START: Loaded story %q (%d-%d players, %d roles)", s.Slug, s.MinPlayers, s.Capacity(), len(s.Catalog.Roles()))
	}

	return library, nil
}

// listStories prints every loaded story, failing on the first invalid one.
func listStories(w io.Writer, cfg *Config) error {
	library, err := loadLibrary(cfg)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tTITLE\tPLAYERS\tREGULARS\tPAIRS\tACCOMPLICE")

	for _, s := range library.List() {
		accomplice := "no"
		if s.Options.UseAccomplice && s.Catalog.AccompliceKey() != "" {
			accomplice = fmt.Sprintf("from %d, second from %d", s.Options.AccompliceThreshold, s.Options.SecondAccompliceThreshold)
		}

		fmt.Fprintf(tw, "%s\t%s\t%d-%d\t%d\t%d\t%s\n",
			s.Slug,
			s.Title,
			s.MinPlayers,
			s.Capacity(),
			len(s.Catalog.RegularKeys()),
			len(s.Catalog.Pairs()),
			accomplice,
		)
	}

	return tw.Flush()
}
