package submissiondb

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"sync"
)

// fakeSheetsAPI emulates the spreadsheet at the values-API seam: a named
// grid per sheet, header row included at index 0. Guarded by a mutex the
// way the remote store serializes individual requests.
type fakeSheetsAPI struct {
	mu     sync.Mutex
	sheets map[string][][]string
	nextID int64
	ids    map[string]int64

	// errOn lets a test fail a specific call once.
	errOn map[string]error

	getCalls    int
	appendCalls int
	updateCalls int
}

var rangeRe = regexp.MustCompile(`^([^!]+)!A(\d+):D(\d*)$`)

func newFakeSheetsAPI() *fakeSheetsAPI {
	return &fakeSheetsAPI{
		sheets: make(map[string][][]string),
		ids:    make(map[string]int64),
		errOn:  make(map[string]error),
	}
}

func (f *fakeSheetsAPI) failOnce(call string, err error) {
	f.errOn[call] = err
}

func (f *fakeSheetsAPI) takeErr(call string) error {
	if err, ok := f.errOn[call]; ok {
		delete(f.errOn, call)
		return err
	}
	return nil
}

func (f *fakeSheetsAPI) addSheet(title string) {
	if _, ok := f.sheets[title]; ok {
		return
	}
	f.sheets[title] = nil
	f.ids[title] = f.nextID
	f.nextID++
}

func (f *fakeSheetsAPI) SheetTitles(context.Context) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeErr("titles"); err != nil {
		return nil, err
	}
	titles := make(map[string]int64, len(f.sheets))
	for title, id := range f.ids {
		titles[title] = id
	}
	return titles, nil
}

func (f *fakeSheetsAPI) AddSheets(_ context.Context, titles []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeErr("add"); err != nil {
		return err
	}
	for _, title := range titles {
		f.addSheet(title)
	}
	return nil
}

func (f *fakeSheetsAPI) parseRange(rng string) (sheet string, start, end int, err error) {
	m := rangeRe.FindStringSubmatch(rng)
	if m == nil {
		return "", 0, 0, fmt.Errorf("fake: unsupported range %q", rng)
	}
	if _, ok := f.sheets[m[1]]; !ok {
		return "", 0, 0, fmt.Errorf("fake: unknown sheet %q", m[1])
	}
	start, _ = strconv.Atoi(m[2])
	if m[3] == "" {
		end = -1 // open-ended
	} else {
		end, _ = strconv.Atoi(m[3])
	}
	return m[1], start, end, nil
}

func (f *fakeSheetsAPI) GetValues(_ context.Context, rng string) ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeErr("get"); err != nil {
		return nil, err
	}
	f.getCalls++

	sheet, start, end, err := f.parseRange(rng)
	if err != nil {
		return nil, err
	}
	grid := f.sheets[sheet]
	if start > len(grid) {
		return nil, nil
	}
	if end == -1 || end > len(grid) {
		end = len(grid)
	}
	out := make([][]string, 0, end-start+1)
	for _, row := range grid[start-1 : end] {
		out = append(out, append([]string(nil), row...))
	}
	return out, nil
}

func (f *fakeSheetsAPI) UpdateValues(_ context.Context, rng string, rows [][]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeErr("update"); err != nil {
		return err
	}
	f.updateCalls++

	sheet, start, _, err := f.parseRange(rng)
	if err != nil {
		return err
	}
	grid := f.sheets[sheet]
	for i, row := range rows {
		idx := start - 1 + i
		for len(grid) <= idx {
			grid = append(grid, nil)
		}
		grid[idx] = append([]string(nil), row...)
	}
	f.sheets[sheet] = grid
	return nil
}

func (f *fakeSheetsAPI) AppendValues(_ context.Context, rng string, rows [][]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeErr("append"); err != nil {
		return err
	}
	f.appendCalls++

	sheet, _, _, err := f.parseRange(rng)
	if err != nil {
		return err
	}
	for _, row := range rows {
		f.sheets[sheet] = append(f.sheets[sheet], append([]string(nil), row...))
	}
	return nil
}

func (f *fakeSheetsAPI) DeleteRows(_ context.Context, sheetID, start, end int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeErr("delete"); err != nil {
		return err
	}
	for title, id := range f.ids {
		if id != sheetID {
			continue
		}
		grid := f.sheets[title]
		if start < 0 || end > int64(len(grid)) {
			return fmt.Errorf("fake: row range [%d, %d) out of bounds", start, end)
		}
		f.sheets[title] = append(grid[:start], grid[end:]...)
		return nil
	}
	return fmt.Errorf("fake: unknown sheet id %d", sheetID)
}
