// Package catalog loads the observation catalog and its bookkeeping files:
// .fld field files, the allocated-time log, the done ledger, and the list of
// campaign nights.
package catalog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/richardjcool/MMTQueue/core/astro"
	"github.com/richardjcool/MMTQueue/core/model"
)

// LoadFields walks dir and parses every .fld file found into an observation
// request. Mask fields additionally read their rotator position angle from
// the sibling <mask>.msk file.
func LoadFields(dir string) ([]model.ObservationRequest, error) {
	var paths []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".fld") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: walking %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("catalog: no .fld files under %s", dir)
	}

	var requests []model.ObservationRequest
	for _, path := range paths {
		req, err := readFLD(path)
		if err != nil {
			return nil, err
		}
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("catalog: %s: %w", path, err)
		}
		requests = append(requests, req)
	}
	return requests, nil
}

// readFLD parses one field file. The layout is two header lines (PI and
// program id), a keyword row, a dashed separator, and one row of values.
func readFLD(path string) (model.ObservationRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.ObservationRequest{}, fmt.Errorf("catalog: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	header := func() ([]string, error) {
		if !scanner.Scan() {
			return nil, fmt.Errorf("catalog: %s: truncated field file", path)
		}
		return strings.Fields(scanner.Text()), nil
	}

	piLine, err := header()
	if err != nil {
		return model.ObservationRequest{}, err
	}
	if len(piLine) < 2 {
		return model.ObservationRequest{}, fmt.Errorf("catalog: %s: malformed PI line", path)
	}
	pi := piLine[1]

	if _, err := header(); err != nil { // program id line, unused downstream
		return model.ObservationRequest{}, err
	}

	keywords, err := header()
	if err != nil {
		return model.ObservationRequest{}, err
	}
	if _, err := header(); err != nil { // dashed separator
		return model.ObservationRequest{}, err
	}
	values, err := header()
	if err != nil {
		return model.ObservationRequest{}, err
	}
	if len(values) != len(keywords) {
		return model.ObservationRequest{}, fmt.Errorf("catalog: %s: %d values for %d keywords", path, len(values), len(keywords))
	}

	cols := make(map[string]string, len(keywords))
	for i, k := range keywords {
		cols[k] = values[i]
	}

	return buildRequest(path, pi, cols)
}

func buildRequest(path, pi string, cols map[string]string) (model.ObservationRequest, error) {
	get := func(key string) (string, error) {
		v, ok := cols[key]
		if !ok {
			return "", fmt.Errorf("catalog: %s: missing column %q", path, key)
		}
		return v, nil
	}
	getFloat := func(key string) (float64, error) {
		s, err := get(key)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("catalog: %s: column %q: %w", path, key, err)
		}
		return v, nil
	}
	getInt := func(key string) (int, error) {
		v, err := getFloat(key)
		if err != nil {
			return 0, err
		}
		return int(v), nil
	}

	var req model.ObservationRequest
	var err error
	if req.ID, err = get("objid"); err != nil {
		return req, err
	}
	req.Program = pi

	raStr, err := get("ra")
	if err != nil {
		return req, err
	}
	if req.Position.RA, err = astro.ParseHMS(raStr); err != nil {
		return req, fmt.Errorf("catalog: %s: ra: %w", path, err)
	}
	decStr, err := get("dec")
	if err != nil {
		return req, err
	}
	if req.Position.Dec, err = astro.ParseDMS(decStr); err != nil {
		return req, fmt.Errorf("catalog: %s: dec: %w", path, err)
	}

	if req.ExposureMinutes, err = getFloat("exptime"); err != nil {
		return req, err
	}
	if req.Visits, err = getInt("repeats"); err != nil {
		return req, err
	}
	if req.ExposuresPerVisit, err = getInt("nexp"); err != nil {
		return req, err
	}
	if req.Priority, err = getInt("priority"); err != nil {
		return req, err
	}

	obstype, err := get("obstype")
	if err != nil {
		return req, err
	}
	if req.Class, err = model.ParseObsClass(obstype); err != nil {
		return req, fmt.Errorf("catalog: %s: %w", path, err)
	}
	moon, err := get("moon")
	if err != nil {
		return req, err
	}
	if req.Lunar, err = model.ParseLunarCondition(moon); err != nil {
		return req, fmt.Errorf("catalog: %s: %w", path, err)
	}

	if req.Class == model.ClassMask {
		mask, err := get("mask")
		if err != nil {
			return req, err
		}
		pa, err := readMaskPA(filepath.Join(filepath.Dir(path), mask+".msk"))
		if err != nil {
			return req, err
		}
		req.PositionAngle = pa
	}
	return req, nil
}

// readMaskPA scans a mask design file for its "pa" line.
func readMaskPA(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("catalog: mask file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) > 1 && fields[0] == "pa" {
			pa, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return 0, fmt.Errorf("catalog: %s: pa: %w", path, err)
			}
			return pa, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("catalog: %s: no pa line found", path)
}
