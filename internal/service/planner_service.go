package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khoanguyen-dev/unitime-api/internal/dto"
	"github.com/khoanguyen-dev/unitime-api/internal/models"
	"github.com/khoanguyen-dev/unitime-api/pkg/config"
	appErrors "github.com/khoanguyen-dev/unitime-api/pkg/errors"
	"github.com/khoanguyen-dev/unitime-api/pkg/jobs"
)

// PlannerService runs the section combination search: one section per
// requested subject, minimizing conflicted sessions, preference penalty as
// tie-breaker. Ranked results are cached so later attempts re-index the same
// plan instead of searching again.
type PlannerService struct {
	catalogs  *CatalogService
	plans     *planStore
	cfg       config.PlannerConfig
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPlannerService wires the combination search.
func NewPlannerService(catalogs *CatalogService, cfg config.PlannerConfig, logger *zap.Logger) *PlannerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 8
	}
	if cfg.NodeBudget <= 0 {
		cfg.NodeBudget = 20000
	}
	if cfg.PlanTTL <= 0 {
		cfg.PlanTTL = 30 * time.Minute
	}
	return &PlannerService{
		catalogs:  catalogs,
		plans:     newPlanStore(cfg.PlanTTL),
		cfg:       cfg,
		validator: validator.New(),
		logger:    logger,
	}
}

// WithMetrics attaches search instrumentation.
func (s *PlannerService) WithMetrics(metrics *MetricsService) *PlannerService {
	s.metrics = metrics
	return s
}

// Suggest answers one suggestion request. A request carrying a known PlanID
// only re-indexes the cached ranked list; otherwise a fresh search runs and
// its ranking is cached under a new PlanID.
func (s *PlannerService) Suggest(ctx context.Context, catalogID string, req dto.SuggestionRequest) (*dto.SuggestionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid suggestion payload")
	}
	if req.PlanID != "" {
		if ranked, ok := s.plans.get(req.PlanID); ok {
			s.metrics.RecordPlanLookup(true)
			return s.pick(req.PlanID, req.Attempt, ranked), nil
		}
		// Expired or unknown plan ids fall through to a fresh search.
	}
	s.metrics.RecordPlanLookup(false)

	catalog, err := s.catalogs.Get(ctx, catalogID)
	if err != nil {
		return nil, err
	}

	subjects := make([]subjectCandidates, 0, len(req.Subjects))
	for _, pick := range req.Subjects {
		ref := models.SubjectRef{Major: pick.Major, Subject: pick.Subject}
		sections := catalog.Sections(ref)
		if len(sections) == 0 {
			return nil, appErrors.Clone(appErrors.ErrNotFound,
				"no sections found for "+pick.Major+" / "+pick.Subject)
		}
		subjects = append(subjects, subjectCandidates{ref: ref, sections: sections})
	}

	started := time.Now()
	ranked, visited := s.search(subjects, req.Preference)
	s.metrics.ObserveSearch(time.Since(started), visited)
	if len(ranked) == 0 {
		// Budget exhaustion before any complete combination is not an
		// error: the caller gets an empty selection with zero conflicts.
		s.logger.Sugar().Infow("combination search exhausted",
			"catalog_id", catalogID,
			"subjects", len(subjects),
			"nodes", visited,
		)
		return &dto.SuggestionResponse{
			SelectedClasses: []models.SelectedClass{},
			Conflicts:       []models.ConflictCell{},
		}, nil
	}

	planID := uuid.NewString()
	s.plans.put(planID, ranked)
	s.logger.Sugar().Infow("combination search complete",
		"catalog_id", catalogID,
		"plan_id", planID,
		"subjects", len(subjects),
		"candidates", len(ranked),
	)
	return s.pick(planID, req.Attempt, ranked), nil
}

// pick indexes the ranked list. Attempts past the end clamp to the last
// candidate so callers can keep incrementing without tracking the list size.
func (s *PlannerService) pick(planID string, attempt int, ranked []models.Selection) *dto.SuggestionResponse {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(ranked) {
		attempt = len(ranked) - 1
	}
	selection := ranked[attempt]
	return &dto.SuggestionResponse{
		PlanID:                  planID,
		Attempt:                 attempt,
		Candidates:              len(ranked),
		SelectedClasses:         selection.SelectedClasses,
		TotalConflictedSessions: selection.TotalConflictedSessions,
		Conflicts:               selection.ConflictCells,
	}
}

// SuggestionJob is the dispatcher payload for one queued suggestion request.
type SuggestionJob struct {
	CatalogID string
	Request   dto.SuggestionRequest
}

// PlannerJobHandler adapts the planner to the worker pool contract.
func PlannerJobHandler(planner *PlannerService) jobs.Handler {
	return func(ctx context.Context, req jobs.Request) (interface{}, error) {
		job, ok := req.Payload.(SuggestionJob)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrInternal, "unexpected planner job payload")
		}
		return planner.Suggest(ctx, job.CatalogID, job.Request)
	}
}

type subjectCandidates struct {
	ref      models.SubjectRef
	sections []models.Section
}

// search enumerates section combinations depth first, keeping the best
// MaxCandidates selections. Subjects with fewer candidates are fixed first so
// pruning bites early, and expansion stops once NodeBudget nodes have been
// visited. Branches are cut when their running pairwise conflict count
// already exceeds the worst kept candidate.
func (s *PlannerService) search(subjects []subjectCandidates, preference string) ([]models.Selection, int) {
	ordered := make([]subjectCandidates, len(subjects))
	copy(ordered, subjects)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].sections) < len(ordered[j].sections)
	})

	st := &searchState{
		subjects:   ordered,
		preference: preference,
		budget:     s.cfg.NodeBudget,
		keep:       s.cfg.MaxCandidates,
		chosen:     make([]models.Section, 0, len(ordered)),
	}
	st.descend(0, 0)

	for i := range st.kept {
		st.kept[i].selection = finalizeSelection(ordered, st.kept[i].sections, preference)
	}
	sort.SliceStable(st.kept, func(i, j int) bool {
		a, b := st.kept[i].selection, st.kept[j].selection
		if a.TotalConflictedSessions != b.TotalConflictedSessions {
			return a.TotalConflictedSessions < b.TotalConflictedSessions
		}
		return a.PreferencePenalty < b.PreferencePenalty
	})

	out := make([]models.Selection, 0, len(st.kept))
	for _, c := range st.kept {
		out = append(out, c.selection)
	}
	return out, s.cfg.NodeBudget - st.budget
}

type searchCandidate struct {
	sections  []models.Section
	score     int
	selection models.Selection
}

type searchState struct {
	subjects   []subjectCandidates
	preference string
	budget     int
	keep       int
	chosen     []models.Section
	kept       []searchCandidate
}

func (st *searchState) descend(depth, score int) {
	if st.budget <= 0 {
		return
	}
	st.budget--

	if depth == len(st.subjects) {
		st.record(score)
		return
	}
	for _, section := range st.subjects[depth].sections {
		added := 0
		for _, prev := range st.chosen {
			added += pairConflicts(prev, section)
		}
		next := score + added
		if !st.worthKeeping(next) {
			continue
		}
		st.chosen = append(st.chosen, section)
		st.descend(depth+1, next)
		st.chosen = st.chosen[:len(st.chosen)-1]
	}
}

func (st *searchState) worthKeeping(score int) bool {
	if len(st.kept) < st.keep {
		return true
	}
	return score <= st.kept[len(st.kept)-1].score
}

func (st *searchState) record(score int) {
	sections := make([]models.Section, len(st.chosen))
	copy(sections, st.chosen)
	candidate := searchCandidate{sections: sections, score: score}

	pos := sort.Search(len(st.kept), func(i int) bool {
		return st.kept[i].score > score
	})
	st.kept = append(st.kept, searchCandidate{})
	copy(st.kept[pos+1:], st.kept[pos:])
	st.kept[pos] = candidate
	if len(st.kept) > st.keep {
		st.kept = st.kept[:st.keep]
	}
}

// finalizeSelection replaces the pairwise search score with the exact
// cell-level conflict accounting and attaches the preference penalty.
func finalizeSelection(subjects []subjectCandidates, sections []models.Section, preference string) models.Selection {
	entries := make([]SectionEntry, 0, len(sections))
	classes := make([]models.SelectedClass, 0, len(sections))
	penalty := 0
	for i, section := range sections {
		ref := subjects[i].ref
		entries = append(entries, SectionEntry{Major: ref.Major, Subject: ref.Subject, Section: section})
		classes = append(classes, models.SelectedClass{
			Major:     ref.Major,
			Subject:   ref.Subject,
			SectionID: section.ID,
		})
		penalty += preferencePenalty(section, preference)
	}
	cells := ConflictCells(entries)
	return models.Selection{
		SelectedClasses:         classes,
		TotalConflictedSessions: len(cells),
		ConflictCells:           cells,
		PreferencePenalty:       penalty,
	}
}

// pairConflicts counts the calendar cells two sections both claim as a head:
// same weekday, same starting session, and date ranges that share at least
// one day of that weekday. The count is symmetric and only grows as sections
// are added, which is what lets the search prune on a partial score.
func pairConflicts(a, b models.Section) int {
	total := 0
	for _, oa := range a.Occurrences {
		for _, ob := range b.Occurrences {
			if oa.Weekday != ob.Weekday || oa.SessionStart != ob.SessionStart {
				continue
			}
			total += sharedWeekdays(oa, ob)
		}
	}
	return total
}

// sharedWeekdays counts the dates carrying the occurrences' weekday inside
// the overlap of their date ranges.
func sharedWeekdays(a, b models.Occurrence) int {
	lo, hi := a.StartDate, a.EndDate
	if b.StartDate.After(lo) {
		lo = b.StartDate
	}
	if b.EndDate.Before(hi) {
		hi = b.EndDate
	}
	if lo.After(hi) {
		return 0
	}
	offset := (a.Weekday - models.WeekdayCode(lo) + 7) % 7
	first := lo.AddDate(0, 0, offset)
	if first.After(hi) {
		return 0
	}
	return int(hi.Sub(first).Hours()/(24*7)) + 1
}

// preferencePenalty scores how many session claims a section makes inside
// the shift the student wants free, weighted by how many weeks the
// occurrence runs.
func preferencePenalty(section models.Section, preference string) int {
	shift := ""
	switch preference {
	case dto.PreferenceMorningFree:
		shift = models.ShiftMorning
	case dto.PreferenceAfternoonFree:
		shift = models.ShiftAfternoon
	case dto.PreferenceEveningFree:
		shift = models.ShiftEvening
	default:
		return 0
	}
	penalty := 0
	for _, occ := range section.Occurrences {
		inShift := 0
		for session := occ.SessionStart; session <= occ.SessionEnd; session++ {
			if models.SessionShift(session) == shift {
				inShift++
			}
		}
		if inShift == 0 {
			continue
		}
		weeks := int(occ.EndDate.Sub(occ.StartDate).Hours()/(24*7)) + 1
		penalty += inShift * weeks
	}
	return penalty
}

// ConflictCells scans the entries' combined date span and lists every
// (day, session) cell claimed as a head by more than one section.
func ConflictCells(entries []SectionEntry) []models.ConflictCell {
	var occurrences []models.Occurrence
	for _, entry := range entries {
		occurrences = append(occurrences, entry.Section.Occurrences...)
	}
	minDate, maxDate, ok := models.DateBounds(occurrences)
	if !ok {
		return nil
	}

	var cells []models.ConflictCell
	for day := minDate; !day.After(maxDate); day = day.AddDate(0, 0, 1) {
		code := models.WeekdayCode(day)
		for session := 1; session <= models.SessionsPerDay; session++ {
			var claimants []string
			for _, entry := range entries {
				for _, occ := range entry.Section.Occurrences {
					if occ.Weekday != code || occ.SessionStart != session {
						continue
					}
					if day.Before(occ.StartDate) || day.After(occ.EndDate) {
						continue
					}
					claimants = append(claimants, entry.Section.ID)
					break
				}
			}
			if len(claimants) > 1 {
				cells = append(cells, models.ConflictCell{
					DateEpoch: day.Unix(),
					Session:   session,
					Sections:  claimants,
				})
			}
		}
	}
	return cells
}

// planStore caches ranked candidate lists with a TTL so attempt re-indexing
// never repeats a search. Expired entries are dropped lazily on access.
type planStore struct {
	mu    sync.RWMutex
	ttl   time.Duration
	plans map[string]planEntry
}

type planEntry struct {
	ranked    []models.Selection
	expiresAt time.Time
}

func newPlanStore(ttl time.Duration) *planStore {
	return &planStore{ttl: ttl, plans: make(map[string]planEntry)}
}

func (p *planStore) put(id string, ranked []models.Selection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, entry := range p.plans {
		if time.Now().After(entry.expiresAt) {
			delete(p.plans, key)
		}
	}
	p.plans[id] = planEntry{ranked: ranked, expiresAt: time.Now().Add(p.ttl)}
}

func (p *planStore) get(id string) ([]models.Selection, bool) {
	p.mu.RLock()
	entry, ok := p.plans[id]
	p.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.ranked, true
}
