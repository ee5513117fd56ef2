// Command sqlkit compiles SQL templates and checks database connectivity.
package main

import (
	"fmt"
	"os"

	"github.com/Konsultn-Engineering/sqlkit/cmd/sqlkit/commands"

	_ "github.com/Konsultn-Engineering/sqlkit/providers/mysql"
	_ "github.com/Konsultn-Engineering/sqlkit/providers/oracle"
	_ "github.com/Konsultn-Engineering/sqlkit/providers/postgres"
	_ "github.com/Konsultn-Engineering/sqlkit/providers/pq"
	_ "github.com/Konsultn-Engineering/sqlkit/providers/sqlite"
	_ "github.com/Konsultn-Engineering/sqlkit/providers/sqlserver"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
