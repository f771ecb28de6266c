// Package quickinstall installs prebuilt rust binaries.
//
// A crate is installed by resolving its version and target triple into a
// [Target], from which the candidate artifact urls are derived. Candidates are
// tried in order and streamed straight into tar; only when every candidate is
// missing (http 404) the crate is built from source with `cargo install`.
// Any other failure stops the installation right away.
//
// Two installers are available:
// - [Direct]: the curl | tar path described above
// - [Binstall]: delegates to cargo-binstall, bootstrapping it when needed
// The [Pipeline] picks one at startup, depending on whether a compatible
// cargo-binstall is available.
//
// Outcomes are reported to the stats server in the background, without ever
// blocking or failing an installation.
//
// example usage
//
//	cfg, err := config.Load(quickinstall.Version, os.LookupEnv)
//	if err != nil {
//		return err
//	}
//
//	pipeline := quickinstall.New(
//		cfg,
//		quickinstall.WithFallback(false), // never build from source
//		quickinstall.WithBinstall(false), // always use the curl | tar path
//	)
//
//	return pipeline.InstallAll(ctx, quickinstall.Request{Crate: "ripgrep", Version: "13.0.0"})
package quickinstall
