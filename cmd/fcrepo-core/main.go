// Command fcrepo-core operates a standalone OCFL storage root for
// inspection and manual transaction control.
package main

import "github.com/fcrepo/ocfl-core/cmd/fcrepo-core/internal/cli"

func main() {
	cli.Execute()
}
