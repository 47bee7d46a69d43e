package probes

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"pulsebar/internal/config"
	"pulsebar/internal/module"
)

// BgChange swaps the sway wallpaper for a random image from dir
// (default ~/wallpapers). Options: dir, mode (default stretch).
func BgChange(opts module.Options) module.Handler {
	dir := config.ExpandPath(opts.Get("dir", "~/wallpapers"))
	mode := opts.Get("mode", "stretch")
	return module.Handler{
		Probe: func(ctx context.Context) (module.Fields, error) {
			img, err := pickImage(dir, rand.Intn)
			if err != nil {
				return nil, err
			}
			if err := run(ctx, true, "pkill", "swaybg"); err != nil {
				return nil, err
			}
			if err := Spawn("swaybg", "-i", img, "-m", mode); err != nil {
				return nil, err
			}
			return module.Fields{"": ""}, nil
		},
		Render: func(module.Fields) string { return "" },
	}
}

func isImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

func pickImage(dir string, intn func(int) int) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var imgs []string
	for _, e := range entries {
		if !e.IsDir() && isImage(e.Name()) {
			imgs = append(imgs, e.Name())
		}
	}
	if len(imgs) == 0 {
		return "", errors.New("bgchange: no images in " + dir)
	}
	return filepath.Join(dir, imgs[intn(len(imgs))]), nil
}
