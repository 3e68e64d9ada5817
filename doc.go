// Package msxtoolkit provides Go bindings for the EPANET-MSX multi-species
// water-quality engine.
//
// The engine itself (reaction kinetics, hydraulic/quality coupling, binary
// hydraulics and results files) lives in a pre-built library. This module
// only shepherds values across that boundary: it normalizes enumerated
// arguments, builds argument buffers, turns non-zero status codes into typed
// errors and decodes output buffers into Go values.
//
// # Architecture Overview
//
//	msxtoolkit/          Root package with the enumerated object, location and source types
//	├── engine/          Library interface plus cgo (dlopen) and wazero backends
//	│   └── enginetest/  In-memory engine that records calls, for tests
//	├── toolkit/         Binding facade: Toolkit and Project handles
//	├── errors/          Structured caller-input and engine errors
//	├── config/          YAML run files (engine backend, scenario, overrides)
//	├── scenario/        Runs a configured simulation end to end
//	└── cmd/msxctl/      Command line front end
//
// # Quick Start
//
//	lib, err := engine.OpenNative("libepanetmsx.so")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer lib.Release(ctx)
//
//	tk := toolkit.New(lib)
//	err = tk.WithProject(ctx, "net1.msx", func(p *toolkit.Project) error {
//	    if err := p.SolveH(ctx); err != nil {
//	        return err
//	    }
//	    if err := p.Init(ctx, false); err != nil {
//	        return err
//	    }
//	    for clock, err := range p.Steps(ctx) {
//	        if err != nil {
//	            return err
//	        }
//	        c, _ := p.GetQual(ctx, msxtoolkit.Node, 1, 1)
//	        fmt.Println(clock.Time, c)
//	    }
//	    return nil
//	})
//
// # Enumerations
//
// Object, location and source types accept either their symbolic name or
// their integer code:
//
//	msxtoolkit.ParseObjectType("MSX_SPECIES") // Species
//	msxtoolkit.ParseObjectType("species")     // Species
//	msxtoolkit.ParseObjectType(3)             // Species
//	msxtoolkit.ParseObjectType(42)            // error: unrecognized object type
//
// # Thread Safety
//
// The engine keeps process-wide mutable state for the open project. Nothing
// in this module serializes calls; a Project must be used by one goroutine at
// a time.
package msxtoolkit
