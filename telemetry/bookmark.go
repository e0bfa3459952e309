package telemetry

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkRaceExtinct     BookmarkType = "race_extinct"
	BookmarkPopulationCrash BookmarkType = "population_crash"
	BookmarkRecovery        BookmarkType = "recovery"
	BookmarkWarBreakout     BookmarkType = "war_breakout"
	BookmarkCoexistence     BookmarkType = "coexistence"
)

// Bookmark marks a moment worth looking at in a run.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int32        `csv:"tick"`
	Race        string       `csv:"race"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"race", b.Race,
		"description", b.Description,
	)
}

// raceHistory is a ring of recent windows of one race.
type raceHistory struct {
	windows []WindowStats
	idx     int
	full    bool

	recentMin int // minimum population since the last recovery
	recentMax int // peak population since the last crash
}

func (h *raceHistory) add(s WindowStats) {
	h.windows[h.idx] = s
	h.idx = (h.idx + 1) % len(h.windows)
	if h.idx == 0 {
		h.full = true
	}
}

func (h *raceHistory) all() []WindowStats {
	if h.full {
		return h.windows
	}
	return h.windows[:h.idx]
}

// BookmarkDetector watches window rows for extinctions, crashes,
// recoveries, surges in fighting and long stretches of coexistence.
type BookmarkDetector struct {
	historySize  int
	races        map[string]*raceHistory
	stableStreak int
}

// stableWindows is how many consecutive calm windows make a coexistence bookmark.
const stableWindows = 5

// NewBookmarkDetector creates a detector keeping historySize windows per race.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < stableWindows {
		historySize = stableWindows
	}
	return &BookmarkDetector{historySize: historySize, races: make(map[string]*raceHistory)}
}

func (bd *BookmarkDetector) history(race string) *raceHistory {
	h := bd.races[race]
	if h == nil {
		h = &raceHistory{windows: make([]WindowStats, bd.historySize)}
		bd.races[race] = h
	}
	return h
}

// Check analyzes the rows of one flushed window and returns any triggered
// bookmarks.
func (bd *BookmarkDetector) Check(rows []WindowStats) []Bookmark {
	var bookmarks []Bookmark
	for _, s := range rows {
		h := bd.history(s.Race)
		if prev := h.all(); len(prev) > 0 {
			for _, check := range []func(*raceHistory, WindowStats) *Bookmark{
				checkExtinct, checkCrash, checkRecovery, checkWar,
			} {
				if b := check(h, s); b != nil {
					bookmarks = append(bookmarks, *b)
				}
			}
		}
		h.add(s)
		if s.Population < h.recentMin || h.recentMin == 0 {
			h.recentMin = s.Population
		}
		h.recentMax = max(h.recentMax, s.Population)
	}
	if b := bd.checkCoexistence(rows); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	return bookmarks
}

func checkExtinct(h *raceHistory, s WindowStats) *Bookmark {
	prev := h.windows[(h.idx+len(h.windows)-1)%len(h.windows)]
	if prev.Population == 0 || s.Population != 0 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkRaceExtinct,
		Tick:        s.WindowEndTick,
		Race:        s.Race,
		Description: fmt.Sprintf("%s died out (%d alive one window earlier)", s.Race, prev.Population),
	}
}

func checkCrash(h *raceHistory, s WindowStats) *Bookmark {
	if h.recentMax == 0 || s.Population == 0 {
		return nil
	}
	drop := 1.0 - float64(s.Population)/float64(h.recentMax)
	if drop <= 0.30 || s.Population >= h.recentMax-10 {
		return nil
	}
	peak := h.recentMax
	h.recentMax = s.Population
	return &Bookmark{
		Type:        BookmarkPopulationCrash,
		Tick:        s.WindowEndTick,
		Race:        s.Race,
		Description: fmt.Sprintf("%s crashed %.0f%% from peak %d to %d", s.Race, drop*100, peak, s.Population),
	}
}

func checkRecovery(h *raceHistory, s WindowStats) *Bookmark {
	if h.recentMin == 0 || h.recentMin > 3 {
		return nil
	}
	if s.Population < h.recentMin*3 || s.Population < 6 {
		return nil
	}
	low := h.recentMin
	h.recentMin = s.Population
	return &Bookmark{
		Type:        BookmarkRecovery,
		Tick:        s.WindowEndTick,
		Race:        s.Race,
		Description: fmt.Sprintf("%s recovered from %d to %d", s.Race, low, s.Population),
	}
}

func checkWar(h *raceHistory, s WindowStats) *Bookmark {
	prev := h.all()
	if len(prev) < 3 || s.Fights < 3 {
		return nil
	}
	total := 0
	for _, w := range prev {
		total += w.Fights
	}
	avg := float64(total) / float64(len(prev))
	if avg == 0 || float64(s.Fights) <= 2*avg {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkWarBreakout,
		Tick:        s.WindowEndTick,
		Race:        s.Race,
		Description: fmt.Sprintf("%s won %d fights, %.1fx the average %.1f", s.Race, s.Fights, float64(s.Fights)/avg, avg),
	}
}

// checkCoexistence fires once when every race has stayed present with a
// coefficient of variation under 0.2 for stableWindows windows.
func (bd *BookmarkDetector) checkCoexistence(rows []WindowStats) *Bookmark {
	if len(rows) == 0 {
		return nil
	}
	calm := true
	for _, s := range rows {
		if s.Population < 3 {
			calm = false
			break
		}
		h := bd.races[s.Race].all()
		if len(h) < 4 {
			calm = false
			break
		}
		pops := make([]float64, 4)
		for i, w := range h[len(h)-4:] {
			pops[i] = float64(w.Population)
		}
		mean, std := stat.PopMeanStdDev(pops, nil)
		if mean == 0 || std/mean >= 0.2 {
			calm = false
			break
		}
	}
	if !calm {
		bd.stableStreak = 0
		return nil
	}
	bd.stableStreak++
	if bd.stableStreak != stableWindows {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkCoexistence,
		Tick:        rows[0].WindowEndTick,
		Description: fmt.Sprintf("%d races coexisted steadily for %d windows", len(rows), stableWindows),
	}
}
