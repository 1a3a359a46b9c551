// Package xbrowser opens URLs in the user's browser.
package xbrowser

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/pkg/browser"

	"oss.terrastruct.com/xos"
)

// Open opens url with the command named by $BROWSER if set and with the
// system default browser otherwise. BROWSER=0, false or none suppresses
// opening so watch sessions can run headless.
func Open(ctx context.Context, env *xos.Env, url string) error {
	browserEnv := env.Getenv("BROWSER")
	switch browserEnv {
	case "0", "false", "none":
		return nil
	case "":
		return browser.OpenURL(url)
	}
	browserSh := fmt.Sprintf("%s '$1'", browserEnv)
	cmd := exec.CommandContext(ctx, "sh", "-c", browserSh, "--", url)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to run %v (out: %q): %w", cmd.Args, out, err)
	}
	return nil
}
