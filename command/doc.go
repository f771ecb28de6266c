// Package command runs external processes and classifies their outcome.
//
// Every program this tool talks to (curl, tar, unzip, rustc, cargo) is treated
// as a black box: an [Invocation] is built with options, executed in one of
// three modes and its exit status interpreted.
//   - [Invocation.Output] captures stdout and stderr, for commands whose output is parsed
//   - [Invocation.Start] pipes stdout back to the caller, for streaming into another process
//   - [Invocation.Run] attaches the terminal, for commands whose output is meant for the user
//
// A command that exits with a non-zero status produces a [*FailedError] with the
// rendered command line and everything it printed; failing to spawn the process at
// all is reported as a plain wrapped error.
//
// example usage
//
//	tar, err := command.New(ctx, "tar", command.WithArgs("-xzvvf", "-", "-C", dir), command.WithStdIn(r))
//	if err != nil {
//		return err
//	}
//	fmt.Println(tar) // tar -xzvvf - -C /home/user/.cargo/bin
//	res, err := tar.Output()
package command
