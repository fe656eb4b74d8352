package router

import (
	"sort"

	pferrors "github.com/vango-dev/pagefiles/internal/errors"
	"github.com/vango-dev/pagefiles/pkg/pagefile"
)

// Result is the outcome of one resolution pass over a registry snapshot.
type Result struct {
	// Pagefiles are the valid pagefiles, sorted by file path.
	Pagefiles []*pagefile.Pagefile

	// Invalid holds one InvalidPagefile error per rejected record, sorted by
	// file path. Rejected records are left out of Routes.
	Invalid []*pferrors.Error

	// Routes is the assembled route tree.
	Routes []RouteNode
}

// Build validates records, resolves layouts and assembles the route tree.
// isLayout classifies a file path as a layout.
//
// Invalid records never fail the pass; they are reported in Result.Invalid.
// The returned error is always a structural *errors.Error, in which case no
// Result is produced.
func Build(records []pagefile.Record, isLayout func(file string) bool) (*Result, error) {
	res := &Result{}

	for _, rec := range records {
		p, reasons := pagefile.Narrow(rec, isLayout(rec.FilePath))
		if len(reasons) > 0 {
			res.Invalid = append(res.Invalid, pferrors.InvalidPagefile(rec.FilePath, reasons))
			continue
		}
		res.Pagefiles = append(res.Pagefiles, p)
	}

	sort.Slice(res.Pagefiles, func(i, j int) bool { return res.Pagefiles[i].FilePath < res.Pagefiles[j].FilePath })
	sort.Slice(res.Invalid, func(i, j int) bool { return res.Invalid[i].File < res.Invalid[j].File })

	assignments, err := ResolveLayouts(res.Pagefiles)
	if err != nil {
		return nil, err
	}
	res.Routes = BuildRouteTree(assignments)

	return res, nil
}
