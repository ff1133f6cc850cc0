// Package factory instantiates pluggable modules such as LP solvers and
// metrics sinks from configuration. A module is named by a type string and
// carries a map of raw settings that its factory decodes, using the json
// tags of a typed config struct.
//
//	reg := factory.NewRegistry[solver.Solver]()
//	_ = reg.Register("highs", func(conf map[string]any) (solver.Solver, error) {
//	    var c struct{ Binary string `json:"binary"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return HighsSolver{Binary: c.Binary}, nil
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "highs", Conf: map[string]any{"binary": "/usr/bin/highs"}})
package factory
