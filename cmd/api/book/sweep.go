package book

import (
	"context"
	"log"
	"time"
)

type SweepReport struct {
	Scanned int
	Deleted int
	Failed  int
}

// SweepOrphanAssets deletes stored assets no book references anymore. It is a
// maintenance operation and never runs on the request path. Assets younger
// than minAge are kept: they may belong to a create still in flight.
func (s *Service) SweepOrphanAssets(ctx context.Context, minAge time.Duration) (SweepReport, error) {
	books, err := s.repo.ListBooks(ctx)
	if err != nil {
		return SweepReport{}, repoErr("SweepOrphanAssets", err)
	}

	referenced := map[string]struct{}{}
	for _, b := range books {
		for _, locator := range assetLocators(b) {
			referenced[locator] = struct{}{}
		}
	}

	var report SweepReport
	for _, ns := range []Namespace{NamespaceCovers, NamespaceFiles} {
		stored, err := s.assets.List(ctx, ns)
		if err != nil {
			return report, storageErr("listing "+string(ns), err)
		}
		for _, a := range stored {
			report.Scanned++
			if _, ok := referenced[a.Locator]; ok {
				continue
			}
			if time.Since(a.StoredAt) < minAge {
				continue
			}
			if err := s.assets.Delete(ctx, a.Locator); err != nil {
				log.Printf("sweeping %s: %v", a.Locator, err)
				report.Failed++
				continue
			}
			report.Deleted++
		}
	}
	return report, nil
}
