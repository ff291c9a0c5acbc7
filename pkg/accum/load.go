package accum

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/abworrall/rawls-accum/pkg/rawls"
)

// ListInputs expands the args (files, or dirs to recurse into) into the
// list of .rawls files to fuse, sorted by path. Fusion order is fixed by
// this sort, so a rerun over the same files gives the same checkpoints.
func ListInputs(args ...string) ([]string, error) {
	files := []string{}
	if err := collectInputs(&files, args...); err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func collectInputs(files *[]string, args ...string) error {
	for _, arg := range args {
		item, err := os.Stat(arg)

		switch {

		case err != nil:
			return fmt.Errorf("load %s: %w", arg, err)

		case item.IsDir():
			// Is a dir, recurse into contents
			contents, err := os.ReadDir(arg)
			if err != nil {
				return fmt.Errorf("readdir %s: %w", arg, err)
			}
			for _, content := range contents {
				if err := collectInputs(files, filepath.Join(arg, content.Name())); err != nil {
					return err
				}
			}

		case isInput(arg):
			*files = append(*files, arg)
		}
	}

	return nil
}

// listDirInputs is ListInputs for the top level of dir only.
func listDirInputs(dir string) ([]string, error) {
	contents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("readdir %s: %w", dir, err)
	}

	files := []string{}
	for _, content := range contents {
		if !content.IsDir() && isInput(content.Name()) {
			files = append(files, filepath.Join(dir, content.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func isInput(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), rawls.Ext)
}
