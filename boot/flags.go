package boot

import (
	"flag"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tecnotop/backend/libs/golog"
)

// ParseFlags parses the command line flags and environment variables for
// flag values. A flag named db_host can be provided through the environment
// as <prefix>DB_HOST. Values given on the command line win. A .env file in
// the working directory is loaded first when present.
func ParseFlags(prefix string) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		golog.Warningf("Failed to load .env: %s", err)
	}

	flag.Parse()

	set := make(map[string]struct{})
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = struct{}{}
	})
	flag.VisitAll(func(f *flag.Flag) {
		if _, ok := set[f.Name]; ok {
			return
		}
		name := prefix + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(f.Name))
		if v := os.Getenv(name); v != "" {
			if err := f.Value.Set(v); err != nil {
				golog.Fatalf("Invalid value '%s' for %s: %s", v, name, err)
			}
		}
	})
}
