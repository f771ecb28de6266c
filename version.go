package quickinstall

// Version of the client, sent along with every request.
// Release builds override it with -ldflags "-X github.com/aexvir/quickinstall.Version=...".
var Version = "0.3.0"
