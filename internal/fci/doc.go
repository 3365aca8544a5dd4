// Package fci computes the financial conditions index (FCI-G) from a table
// of quarterly-differenced observations on an irregular calendar.
//
// Each evaluation date needs the twelve rows lying roughly three, six, ...,
// thirty-six months before it. Finding them naively costs a binary search
// per (date, lag) pair. Instead BuildCache walks backward once over the
// whole table, storing for every row up to eight "three months earlier"
// pointers, one per day-of-month drift bucket, and stops each chain as soon
// as it rejoins work already done. History walks then cost twelve array
// reads.
//
// Typical use:
//
//	table, err := fci.NewTable(dates, names, values)
//	cache, stats, err := fci.BuildCache(table)
//	eval, err := fci.NewEvaluator(table, cache, weights, fci.Options{Workers: 4})
//	result, err := eval.Evaluate(ctx)
//
// The cache is read-only once built and is shared by all evaluation workers.
package fci
