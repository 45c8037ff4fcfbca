package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	devenv "gallwatch/dev/env"
)

const galleryConfigTemplate = `{
	// a thread with more than one comment page
	thread_url: "https://gall.dcinside.com/mgallery/board/view/?id=pokemontcgpocket&no=205860",
	// a user whose gallog counters are read
	probe_identity: "",
	browser: {
		headless: true,
	},
}
`

const optionsTemplate = `{
	state_dir: "dev/.state",
	navigation_settle_ms: 3000,
	transition_settle_ms: 3000,
	login_settle_ms: 5000,
	write_interval_ms: 3000,
	browser: {
		headless: false,
	},
}
`

func writeTemplate(name, contents string, recreate bool) error {
	path, err := devenv.ResolvePath(filepath.Join("<dev_state>", name))
	if err != nil {
		return err
	}
	_, err = os.Stat(path)
	if err == nil && !recreate {
		fmt.Printf("keeping %s\n", path)
		return nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	fmt.Printf("writing %s\n", path)
	return os.WriteFile(path, []byte(contents), 0o644)
}

func create(recreate bool) error {
	_, err := os.Stat("go.mod")
	if os.IsNotExist(err) {
		return fmt.Errorf("the dev environment must be created in the repository root (the same directory as the 'go.mod' file)")
	}

	err = writeTemplate("gallery_config.json5", galleryConfigTemplate, recreate)
	if err != nil {
		return err
	}
	err = writeTemplate("gallwatch.json5", optionsTemplate, recreate)
	if err != nil {
		return err
	}

	fmt.Println("fill in dev/.state/gallery_config.json5 to enable the live tests.")
	fmt.Println("run the watcher against the dev state with: go run ./cmd/gallwatch run --options dev/.state/gallwatch.json5")
	return nil
}

func main() {
	recreate := flag.Bool("recreate", false, "overwrite existing dev state templates")
	flag.Parse()

	err := create(*recreate)
	if err != nil {
		slog.Error("failed to create dev environment", "err", err.Error())
		os.Exit(1)
	}
}
