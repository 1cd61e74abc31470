// Package testutil provides deterministic fixtures for tests and benchmarks.
//
// This package is intended for use in tests only.
//
//	rng := testutil.NewRNG(4711)
//	rows := rng.UniformRows(10, 64, -1, 1)
//
//	fx, _ := testutil.NewFixture(rng, 3, 4, 12)
//	engine, _ := ontoinfer.New(fx.Tree, fx.Observations, fx.Correspondence)
package testutil
