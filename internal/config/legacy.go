package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/san-kum/minorbit/internal/dynamo"
)

var designation = regexp.MustCompile(`(\d{4})\s+([A-Za-z0-9]+)`)

// LoadLegacy reads the line-oriented TXT input:
//
//	T0 2024-01-01
//	TF 2024-12-31
//	DT 1        ; step in days
//	MP 2017 BX232
//	RF results.txt
//
// Everything after ';' is a comment. Bodies are resolved through Horizons
// and validated against it at TF. The RF file name, without extension,
// becomes the run name.
func LoadLegacy(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseLegacy(f)
}

func ParseLegacy(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Horizons.Enabled = true
	cfg.Horizons.Validate = true

	var haveT0, haveTF, haveDT bool
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, ';'); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
		if len(text) < 3 || text[2] != ' ' {
			continue
		}
		key, value := text[:2], strings.TrimSpace(text[3:])

		switch key {
		case "T0", "TF":
			fields := strings.Fields(value)
			if len(fields) == 0 {
				return nil, legacyError(line, key, "missing date")
			}
			e, err := ParseEpoch(fields[0])
			if err != nil {
				return nil, legacyError(line, key, err.Error())
			}
			if key == "T0" {
				cfg.Window.T0, haveT0 = e, true
			} else {
				cfg.Window.TF, haveTF = e, true
			}
		case "DT":
			fields := strings.Fields(value)
			if len(fields) == 0 {
				return nil, legacyError(line, key, "missing step")
			}
			dt, err := strconv.ParseFloat(fields[0], 64)
			if err != nil {
				return nil, legacyError(line, key, err.Error())
			}
			cfg.Window.DT, haveDT = dt, true
		case "MP":
			des := strings.Join(strings.Fields(value), " ")
			if m := designation.FindStringSubmatch(value); m != nil {
				des = m[1] + " " + m[2]
			}
			if des == "" {
				return nil, legacyError(line, key, "missing designation")
			}
			cfg.MinorBodies = append(cfg.MinorBodies, MinorBody{Designator: des})
		case "RF":
			name := strings.TrimSuffix(filepath.Base(value), filepath.Ext(value))
			if name != "" && name != "." {
				cfg.Name = name
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	switch {
	case !haveT0:
		return nil, &dynamo.ConfigError{Field: "T0", Reason: "not assigned"}
	case !haveTF:
		return nil, &dynamo.ConfigError{Field: "TF", Reason: "not assigned"}
	case !haveDT:
		return nil, &dynamo.ConfigError{Field: "DT", Reason: "not assigned"}
	}
	return cfg, nil
}

func legacyError(line int, key, reason string) error {
	return &dynamo.ConfigError{Field: fmt.Sprintf("line %d: %s", line, key), Reason: reason}
}
