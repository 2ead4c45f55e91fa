package main

import (
	"os"

	"github.com/schemalens/schemalens/pkg/cli"

	_ "github.com/schemalens/schemalens/pkg/adapters/datasource/postgres"
	_ "github.com/schemalens/schemalens/pkg/adapters/datasource/sqlite"
	_ "github.com/schemalens/schemalens/pkg/adapters/datasource/sqlserver"
)

func main() {
	os.Exit(cli.Execute())
}
