package anditer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/googlearchive/graphd-sub006/cursor"
	"github.com/googlearchive/graphd-sub006/common"
	"github.com/googlearchive/graphd-sub006/setiter"
)

// Freeze serializes the AND's cursor (spec.md §4.5.7, §6 "and[producer_idx:
// sub1+sub2+…]/…"): direction, bounds, contest outcome, and every
// subiterator's own frozen form, recursively composable via cursor.Thaw.
func (a *And) Freeze(flags setiter.FreezeFlags) string {
	dir := "f"
	if a.dir == common.Backward {
		dir = "b"
	}
	statsDone := "0"
	if a.statsDone {
		statsDone = "1"
	}
	eof := "0"
	if a.eof {
		eof = "1"
	}
	subStrs := make([]string, len(a.subs))
	for i, s := range a.subs {
		subStrs[i] = s.Freeze(flags)
	}
	return fmt.Sprintf("and[%s/%d/%d/%s/%d/%s/%s]",
		dir, a.lo, a.hi, statsDone, a.producerIdx, eof, strings.Join(subStrs, "+"))
}

func thawAnd(body string) (setiter.Iterator, error) {
	body = strings.TrimSuffix(body, "]")
	fields := strings.SplitN(body, "/", 7)
	if len(fields) != 7 {
		return nil, fmt.Errorf("anditer: malformed and cursor %q", body)
	}
	dir := common.Forward
	if fields[0] == "b" {
		dir = common.Backward
	}
	lo, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return nil, err
	}
	hi, err := strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return nil, err
	}
	producerIdx, err := strconv.Atoi(fields[4])
	if err != nil {
		return nil, err
	}

	a := New(common.ID(lo), common.ID(hi), dir)
	subBodies := cursor.SplitTopLevel(fields[6], '+')
	for _, sb := range subBodies {
		if sb == "" {
			continue
		}
		it, err := cursor.Thaw(sb)
		if err != nil {
			return nil, fmt.Errorf("anditer: thaw subiterator: %w", err)
		}
		a.AddSub(it)
	}
	a.committed = true
	a.structuralID = 1
	a.thawed = true

	if fields[3] == "1" && producerIdx < len(a.subs) {
		a.producerHint = producerIdx
		a.haveHint = true
	}
	if fields[5] == "1" {
		a.eof = true
	}
	return a, nil
}

func init() {
	cursor.Register("and", thawAnd)
}
