//go:build ruleguard

// Package gorules contains custom linting rules for golangci-lint via
// ruleguard, tuned to the hazards of this codebase: float coordinate math,
// wrapped error handling and goroutine lifecycle around WaitGroups.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// CoordinateEquality detects == and != between float64 values. Projected
// coordinates pass through a UTM conversion and averaging, so two values
// that are logically the same point rarely compare equal bit for bit.
//
// Old pattern:
//
//	if point.Lat == center.Lat { ... }
//
// New pattern:
//
//	if math.Abs(point.Lat-center.Lat) < tolerance { ... }
//
// Comparisons against constants (zero guards, sentinel checks) are left
// alone, and tests may assert exact values via testify's InDelta instead.
func CoordinateEquality(m dsl.Matcher) {
	m.Match(`$x == $y`, `$x != $y`).
		Where(m["x"].Type.Is(`float64`) &&
			!m["x"].Const && !m["y"].Const &&
			!m.File().Name.Matches(`.*_test\.go`)).
		Report("float64 equality on computed values, compare against a tolerance")
}

// ErrorTextComparison detects code that branches on an error's text. Errors
// in this codebase carry a component and category, matching on those
// survives message wording changes.
//
// Old pattern:
//
//	if err.Error() == "screening run not found" { ... }
//
// New pattern:
//
//	if errors.IsCategory(err, errors.CategoryNotFound) { ... }
func ErrorTextComparison(m dsl.Matcher) {
	m.Match(`$err.Error() == $s`, `$err.Error() != $s`).
		Where(m["err"].Type.Implements(`error`) &&
			!m.File().Name.Matches(`.*_test\.go`)).
		Report("compare errors with errors.Is or an error category, not their text")

	m.Match(`strings.Contains($err.Error(), $s)`).
		Where(m["err"].Type.Implements(`error`) &&
			!m.File().Name.Matches(`.*_test\.go`)).
		Report("compare errors with errors.Is or an error category, not their text")
}

// TimeSinceUntil detects manual arithmetic against time.Now and suggests
// the dedicated helpers.
//
// Old patterns:
//
//	elapsed := time.Now().Sub(started)
//	remaining := deadline.Sub(time.Now())
//
// New patterns:
//
//	elapsed := time.Since(started)
//	remaining := time.Until(deadline)
//
// See: https://pkg.go.dev/time#Since
func TimeSinceUntil(m dsl.Matcher) {
	m.Match(`time.Now().Sub($t)`).
		Report("use time.Since($t) instead of time.Now().Sub($t)").
		Suggest("time.Since($t)")

	m.Match(`$t.Sub(time.Now())`).
		Report("use time.Until($t) instead of $t.Sub(time.Now())").
		Suggest("time.Until($t)")
}

// SprintfConversions detects fmt.Sprintf used for plain conversions. The
// CSV and GeoJSON writers format every cell, strconv keeps that off the
// fmt reflection path.
//
// Old patterns:
//
//	cell := fmt.Sprintf("%d", rows)
//	label := fmt.Sprintf("%s", name)
//
// New patterns:
//
//	cell := strconv.Itoa(rows)
//	label := name
func SprintfConversions(m dsl.Matcher) {
	m.Match(`fmt.Sprintf("%d", $x)`).
		Where(m["x"].Type.Is(`int`)).
		Report("use strconv.Itoa($x) instead of fmt.Sprintf (avoids fmt reflection)").
		Suggest("strconv.Itoa($x)")

	m.Match(`fmt.Sprintf("%s", $x)`).
		Where(m["x"].Type.Is(`string`)).
		Report("$x is already a string, fmt.Sprintf is a no-op here").
		Suggest("$x")
}

// WaitGroupModernize detects old WaitGroup patterns that can use the
// Go 1.25 wg.Go() method, which the server shell relies on.
//
// Old pattern (error-prone):
//
//	wg.Add(1)
//	go func() {
//	    defer wg.Done()
//	    doSomething()
//	}()
//
// New pattern (Go 1.25+):
//
//	wg.Go(func() {
//	    doSomething()
//	})
func WaitGroupModernize(m dsl.Matcher) {
	m.Match(`go func() { defer $wg.Done(); $*_ }()`).
		Where(m["wg"].Type.Is("*sync.WaitGroup")).
		Report("Use $wg.Go(func() { ... }) instead of go func() { defer $wg.Done(); ... }() (Go 1.25+)").
		Suggest("$wg.Go(func() { $*_ })")

	m.Match(`go func() { $*_; $wg.Done() }()`).
		Where(m["wg"].Type.Is("*sync.WaitGroup")).
		Report("Use $wg.Go(func() { ... }) instead of manual Done() call (Go 1.25+)")
}

// SliceClone detects manual slice cloning and suggests slices.Clone.
//
// Old patterns:
//
//	clone := make([]T, len(original))
//	copy(clone, original)
//
//	clone := append([]T(nil), original...)
//
// New pattern (Go 1.21+):
//
//	clone := slices.Clone(original)
//
// See: https://pkg.go.dev/slices#Clone
func SliceClone(m dsl.Matcher) {
	m.Match(`$dst := make([]$t, len($src)); copy($dst, $src)`).
		Report("use slices.Clone($src) instead of make+copy (Go 1.21+)").
		Suggest("$dst := slices.Clone($src)")

	m.Match(`append([]$t(nil), $src...)`).
		Report("use slices.Clone($src) instead of append to nil (Go 1.21+)").
		Suggest("slices.Clone($src)")
}
