// Package orchestrator runs one message through the organization.
//
// A run is a single pass:
//   - Routing: the entry agent's direct reports are scored and a target is picked
//   - Execution: the target is invoked through its provider and output is drained
//   - Audit: an immutable run trace is written to the runs directory
//
// Provider failures surface as *ExecutionError and trace persistence failures
// as *TraceWriteError. A failed execution still writes its trace, so both may
// be returned together.
//
// Example usage:
//
//	graph := org.New(org.NewDirSource(workspacesDir), "goat")
//	runner := orchestrator.New(orchestrator.RequiredConfig{
//		Graph:     graph,
//		Providers: provider.NewRegistryFromConfig(cfg.Providers, logger),
//		RunsDir:   runsDir,
//	})
//	result, err := runner.RunAgent(ctx, "goat", orchestrator.RunOptions{Message: "Draft the launch email"})
package orchestrator
