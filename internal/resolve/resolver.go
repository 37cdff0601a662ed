// Package resolve merges raw records from heterogeneous sources into a
// minimal set of canonical entities. Merging is deterministic: identical
// record sets yield identical entities and ordering regardless of the
// order sources completed in.
package resolve

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/blackwidowglobal/dossier/internal/model"
)

// Resolver folds raw records into canonical entities
type Resolver struct {
	threshold float64
	maxDepth  int
}

// New creates a resolver with the configured similarity threshold and
// relationship traversal depth
func New(cfg model.ResolverConfig) *Resolver {
	threshold := cfg.SimilarityThreshold
	if threshold <= 0 {
		threshold = 0.85
	}
	return &Resolver{threshold: threshold, maxDepth: cfg.MaxDepth}
}

// Result is the resolved entity graph for one run
type Result struct {
	Primary model.CanonicalEntity
	Related []model.CanonicalEntity // Reachable from the primary within maxDepth, sorted by ID
	Records map[string][]model.RawRecord // Entity ID -> contributing records for rule evaluation
	Notes   []string // Dropped records, low-confidence merges
}

// cluster is a mergeable group of records believed to describe one entity.
// Union-find by parent pointer; payload lives on the root.
type cluster struct {
	parent *cluster
	seq    int // Creation order, lowest survives a merge for determinism

	kind    model.SubjectKind
	idents  map[string]string
	names   map[string]bool // Display names as reported
	records []model.RawRecord

	jurisdictions map[string]bool // Corroboration material
	addrTokens    map[string]bool
}

func (c *cluster) find() *cluster {
	root := c
	for root.parent != nil {
		root = root.parent
	}
	// Path compression
	for c.parent != nil {
		next := c.parent
		c.parent = root
		c = next
	}
	return root
}

type pendingEdge struct {
	from, to *cluster
	relType  model.RelationType
	source   model.SourceID
}

// Resolve merges the per-source record sets into a canonical entity graph
// centered on the subject
func (r *Resolver) Resolve(subject model.Subject, bySource map[model.SourceID][]model.RawRecord) *Result {
	st := &state{resolver: r, identIndex: make(map[string]*cluster), nameIndex: make(map[string]*cluster)}

	// Deterministic record order: sorted source IDs, records in fetch order
	sources := make([]model.SourceID, 0, len(bySource))
	for id := range bySource {
		sources = append(sources, id)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	var ordered []model.RawRecord
	for _, id := range sources {
		ordered = append(ordered, bySource[id]...)
	}

	// Phase 1: records with an identity key (strong identifier, or a name
	// plus corroborating attributes)
	assigned := make([]*cluster, len(ordered))
	var weak []int
	for i, rec := range ordered {
		if len(rec.Identifiers) == 0 && !hasCorroboration(rec) {
			weak = append(weak, i)
			continue
		}
		assigned[i] = st.assign(rec, subject)
	}

	primary := st.pickPrimary(subject)

	// Phase 2: key-less records (news mentions, contribution rows) attach
	// to the primary only on a name match; anything else is dropped rather
	// than merged into the wrong entity
	for _, i := range weak {
		rec := ordered[i]
		if primary != nil && Similarity(rec.Name, subject.Name) >= r.threshold {
			root := primary.find()
			root.records = append(root.records, rec)
			assigned[i] = root
			continue
		}
		st.notes = append(st.notes, fmt.Sprintf("%s: dropped unattributable %s record %q", rec.SourceID, rec.Kind, rec.Name))
	}

	// Phase 3: relationship edges from every record that found a home
	var edges []pendingEdge
	for i, rec := range ordered {
		if assigned[i] == nil {
			continue
		}
		for _, rel := range rec.Relations {
			target := st.resolveTarget(rel, rec)
			from, to := assigned[i], target
			if rel.Reverse {
				from, to = target, assigned[i]
			}
			edges = append(edges, pendingEdge{from: from, to: to, relType: rel.Type, source: rec.SourceID})
		}
	}

	return st.build(subject, primary, edges)
}

type state struct {
	resolver   *Resolver
	clusters   []*cluster
	identIndex map[string]*cluster // "type:value" -> cluster
	nameIndex  map[string]*cluster // normalized name -> cluster (relation targets)
	notes      []string
	nextSeq    int
}

func (st *state) newCluster(kind model.SubjectKind) *cluster {
	c := &cluster{
		seq:           st.nextSeq,
		kind:          kind,
		idents:        make(map[string]string),
		names:         make(map[string]bool),
		jurisdictions: make(map[string]bool),
		addrTokens:    make(map[string]bool),
	}
	st.nextSeq++
	st.clusters = append(st.clusters, c)
	return c
}

// assign places one keyed record into a cluster, creating or merging as
// needed. A strong-identifier match always wins over name similarity.
func (st *state) assign(rec model.RawRecord, subject model.Subject) *cluster {
	// Collect every cluster sharing a strong identifier
	var byIdent []*cluster
	seen := make(map[*cluster]bool)
	for _, key := range identKeys(rec.Identifiers) {
		if c, ok := st.identIndex[key]; ok {
			root := c.find()
			if !seen[root] {
				seen[root] = true
				byIdent = append(byIdent, root)
			}
		}
	}

	var target *cluster
	switch {
	case len(byIdent) > 0:
		// Shared identifiers are transitive: the record bridges them all
		target = byIdent[0]
		for _, other := range byIdent[1:] {
			target = st.merge(target, other)
		}
	default:
		target = st.matchByName(rec)
	}

	if target == nil {
		target = st.newCluster(kindForRecord(rec, subject))
	}

	st.absorb(target, rec)
	return target
}

// matchByName finds a cluster whose name is similar enough and which
// shares a corroborating attribute. Ties break toward the oldest cluster
// and are recorded as low-confidence merges.
func (st *state) matchByName(rec model.RawRecord) *cluster {
	type candidate struct {
		c   *cluster
		sim float64
	}
	var best *candidate
	tied := false

	seen := make(map[*cluster]bool)
	for _, c := range st.clusters {
		root := c.find()
		if seen[root] {
			continue
		}
		seen[root] = true

		sim := 0.0
		for name := range root.names {
			if s := Similarity(rec.Name, name); s > sim {
				sim = s
			}
		}
		if sim < st.resolver.threshold || !corroborates(rec, root) {
			continue
		}

		switch {
		case best == nil || sim > best.sim:
			best = &candidate{c: root, sim: sim}
			tied = false
		case sim == best.sim && root.seq < best.c.seq:
			best = &candidate{c: root, sim: sim}
			tied = true
		case sim == best.sim:
			tied = true
		}
	}

	if best == nil {
		return nil
	}
	if tied {
		st.notes = append(st.notes, fmt.Sprintf("%s: ambiguous merge for %q resolved to oldest candidate (low confidence)", rec.SourceID, rec.Name))
	}
	return best.c
}

// resolveTarget finds or creates the cluster for a relationship target.
// Targets carry no corroborating attributes, so they merge on a strong
// identifier or an exact normalized name, never on fuzzy similarity.
func (st *state) resolveTarget(rel model.RawRelation, rec model.RawRecord) *cluster {
	for _, key := range identKeys(rel.Identifiers) {
		if c, ok := st.identIndex[key]; ok {
			return c.find()
		}
	}

	normalized := NormalizeName(rel.Name)
	if c, ok := st.nameIndex[normalized]; ok {
		return c.find()
	}

	c := st.newCluster(targetKind(rel))
	c.names[rel.Name] = true
	// The asserting record is the target's provenance
	c.records = append(c.records, rec)
	for t, v := range rel.Identifiers {
		c.idents[t] = v
		st.identIndex[t+":"+v] = c
	}
	st.nameIndex[normalized] = c
	return c
}

// merge unions two clusters, keeping the older root
func (st *state) merge(a, b *cluster) *cluster {
	a, b = a.find(), b.find()
	if a == b {
		return a
	}
	if b.seq < a.seq {
		a, b = b, a
	}

	for t, v := range b.idents {
		if existing, ok := a.idents[t]; ok && existing != v {
			st.notes = append(st.notes, fmt.Sprintf("conflicting %s identifier (%q vs %q) during merge", t, existing, v))
			continue
		}
		a.idents[t] = v
	}
	for name := range b.names {
		a.names[name] = true
	}
	for j := range b.jurisdictions {
		a.jurisdictions[j] = true
	}
	for tok := range b.addrTokens {
		a.addrTokens[tok] = true
	}
	a.records = append(a.records, b.records...)
	b.parent = a
	return a
}

// absorb adds a record's identity material to a cluster
func (st *state) absorb(c *cluster, rec model.RawRecord) {
	c = c.find()
	c.records = append(c.records, rec)
	if rec.Name != "" {
		c.names[rec.Name] = true
		if _, taken := st.nameIndex[NormalizeName(rec.Name)]; !taken {
			st.nameIndex[NormalizeName(rec.Name)] = c
		}
	}
	for t, v := range rec.Identifiers {
		if existing, ok := c.idents[t]; ok && existing != v {
			st.notes = append(st.notes, fmt.Sprintf("%s: conflicting %s identifier (%q vs %q)", rec.SourceID, t, existing, v))
			continue
		}
		c.idents[t] = v
		st.identIndex[t+":"+v] = c
	}
	for _, j := range jurisdictionsOf(rec) {
		c.jurisdictions[j] = true
	}
	for _, tok := range addressTokens(rec) {
		c.addrTokens[tok] = true
	}
}

// pickPrimary chooses the cluster that best matches the subject name
func (st *state) pickPrimary(subject model.Subject) *cluster {
	var best *cluster
	bestSim := 0.0

	seen := make(map[*cluster]bool)
	for _, c := range st.clusters {
		root := c.find()
		if seen[root] {
			continue
		}
		seen[root] = true

		sim := 0.0
		for name := range root.names {
			if s := Similarity(subject.Name, name); s > sim {
				sim = s
			}
		}
		if sim < st.resolver.threshold {
			continue
		}
		if best == nil || sim > bestSim ||
			(sim == bestSim && len(root.records) > len(best.records)) ||
			(sim == bestSim && len(root.records) == len(best.records) && root.seq < best.seq) {
			best = root
			bestSim = sim
		}
	}
	return best
}

// build freezes clusters into canonical entities and walks the graph for
// related entities
func (st *state) build(subject model.Subject, primary *cluster, edges []pendingEdge) *Result {
	result := &Result{Records: make(map[string][]model.RawRecord), Notes: st.notes}

	// Assign IDs per root
	roots := make([]*cluster, 0, len(st.clusters))
	seen := make(map[*cluster]bool)
	for _, c := range st.clusters {
		root := c.find()
		if !seen[root] {
			seen[root] = true
			roots = append(roots, root)
		}
	}

	ids := make(map[*cluster]string, len(roots))
	for _, root := range roots {
		ids[root] = entityID(root)
	}

	// Deduplicate edges on (from, type, to) after union resolution
	type edgeIdent struct {
		from, to string
		relType  model.RelationType
	}
	edgeSources := make(map[edgeIdent]map[model.SourceID]bool)
	for _, e := range edges {
		from, to := e.from.find(), e.to.find()
		if from == to {
			continue
		}
		key := edgeIdent{from: ids[from], to: ids[to], relType: e.relType}
		if edgeSources[key] == nil {
			edgeSources[key] = make(map[model.SourceID]bool)
		}
		edgeSources[key][e.source] = true
	}

	entities := make(map[string]*model.CanonicalEntity, len(roots))
	adjacency := make(map[string][]string)
	for _, root := range roots {
		entity := freeze(root, ids[root])
		entities[entity.ID] = entity
		result.Records[entity.ID] = root.records
	}
	for key, srcs := range edgeSources {
		var sources []model.SourceID
		for s := range srcs {
			sources = append(sources, s)
		}
		sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

		if from, ok := entities[key.from]; ok {
			from.Relationships = append(from.Relationships, model.Relationship{Type: key.relType, TargetID: key.to, Sources: sources})
		}
		// Reachability is undirected: an officer is related to the company
		// and vice versa
		adjacency[key.from] = append(adjacency[key.from], key.to)
		adjacency[key.to] = append(adjacency[key.to], key.from)
	}
	for _, e := range entities {
		sort.Slice(e.Relationships, func(i, j int) bool {
			if e.Relationships[i].Type != e.Relationships[j].Type {
				return e.Relationships[i].Type < e.Relationships[j].Type
			}
			return e.Relationships[i].TargetID < e.Relationships[j].TargetID
		})
	}

	if primary == nil {
		// Nothing resolvable; emit a bare entity so the run still yields a
		// dossier with coverage intact
		result.Notes = append(result.Notes, "subject identity could not be resolved from any source")
		result.Primary = model.CanonicalEntity{
			ID:          entityIDForName(subject.Name),
			Kind:        subject.Kind,
			Names:       []string{subject.Name},
			Identifiers: map[string]string{},
		}
		return result
	}

	primaryRoot := primary.find()
	result.Primary = *entities[ids[primaryRoot]]

	// Breadth-first walk bounded by the traversal depth; deeper edges stay
	// recorded on entities but are not expanded
	visited := map[string]bool{result.Primary.ID: true}
	frontier := []string{result.Primary.ID}
	for depth := 0; depth < st.resolver.maxDepth; depth++ {
		var next []string
		for _, id := range frontier {
			for _, neighbor := range adjacency[id] {
				if !visited[neighbor] {
					visited[neighbor] = true
					next = append(next, neighbor)
				}
			}
		}
		frontier = next
	}

	for id := range visited {
		if id == result.Primary.ID {
			continue
		}
		result.Related = append(result.Related, *entities[id])
	}
	sort.Slice(result.Related, func(i, j int) bool { return result.Related[i].ID < result.Related[j].ID })

	sort.Strings(result.Notes)
	return result
}

// freeze converts a root cluster into an immutable canonical entity
func freeze(root *cluster, id string) *model.CanonicalEntity {
	entity := &model.CanonicalEntity{
		ID:          id,
		Kind:        root.kind,
		Identifiers: make(map[string]string, len(root.idents)),
		Attributes:  foldAttributes(root.records),
	}
	for t, v := range root.idents {
		entity.Identifiers[t] = v
	}

	for name := range root.names {
		entity.Names = append(entity.Names, name)
	}
	sort.Strings(entity.Names)

	for _, rec := range root.records {
		entity.Records = append(entity.Records, recordRef(rec))
	}

	return entity
}

// foldAttributes resolves conflicting attribute values by precedence:
// highest source confidence wins, most recent fetch breaks ties, and the
// losers are kept as superseded revisions. Only identity-bearing record
// kinds contribute; event records (cases, articles, contributions) keep
// their attributes to themselves.
func foldAttributes(records []model.RawRecord) map[string]model.Attribute {
	attrs := make(map[string]model.Attribute)

	folded := make([]model.RawRecord, 0, len(records))
	for _, rec := range records {
		if rec.Kind == model.RecordRegistration || rec.Kind == model.RecordOfficer {
			folded = append(folded, rec)
		}
	}
	// Deterministic fold order regardless of completion timing
	sort.SliceStable(folded, func(i, j int) bool {
		if folded[i].SourceID != folded[j].SourceID {
			return folded[i].SourceID < folded[j].SourceID
		}
		return false
	})

	for _, rec := range folded {
		keys := make([]string, 0, len(rec.Attributes))
		for k := range rec.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			v := rec.Attributes[k]
			if v == "" {
				continue
			}
			incoming := model.Attribute{Value: v, Source: rec.SourceID, Confidence: rec.Confidence, FetchedAt: rec.FetchedAt}

			current, exists := attrs[k]
			if !exists {
				attrs[k] = incoming
				continue
			}
			if v == current.Value {
				continue
			}

			wins := incoming.Confidence > current.Confidence ||
				(incoming.Confidence == current.Confidence && incoming.FetchedAt.After(current.FetchedAt))
			if wins {
				incoming.Superseded = append(current.Superseded, model.Revision{
					Value: current.Value, Source: current.Source, Confidence: current.Confidence, FetchedAt: current.FetchedAt,
				})
				attrs[k] = incoming
			} else {
				current.Superseded = append(current.Superseded, model.Revision{
					Value: incoming.Value, Source: incoming.Source, Confidence: incoming.Confidence, FetchedAt: incoming.FetchedAt,
				})
				attrs[k] = current
			}
		}
	}

	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

// entityID derives a stable within-run ID from the entity's strongest
// identity material: sorted identifiers when present, otherwise the
// lexicographically smallest normalized name
func entityID(root *cluster) string {
	if len(root.idents) > 0 {
		keys := identKeys(root.idents)
		sort.Strings(keys)
		return hashID(strings.Join(keys, "|"))
	}

	names := make([]string, 0, len(root.names))
	for name := range root.names {
		names = append(names, NormalizeName(name))
	}
	sort.Strings(names)
	if len(names) == 0 {
		return hashID("")
	}
	return hashID(names[0])
}

func entityIDForName(name string) string {
	return hashID(NormalizeName(name))
}

func hashID(material string) string {
	sum := sha1.Sum([]byte(material))
	return "ent:" + hex.EncodeToString(sum[:6])
}

func identKeys(idents map[string]string) []string {
	keys := make([]string, 0, len(idents))
	for t, v := range idents {
		keys = append(keys, t+":"+v)
	}
	sort.Strings(keys)
	return keys
}

func recordRef(rec model.RawRecord) model.RecordRef {
	ref := model.RecordRef{Source: rec.SourceID, Kind: rec.Kind, FetchedAt: rec.FetchedAt}
	switch rec.Kind {
	case model.RecordCourtCase:
		ref.Detail = rec.Attributes["case_name"]
	case model.RecordNewsMention:
		ref.Detail = rec.Attributes["headline"]
	case model.RecordFiling:
		ref.Detail = rec.Attributes["form"]
	}
	return ref
}

// hasCorroboration reports whether the record carries any attribute that
// could corroborate a name-similarity merge. Records without one are weak
// mentions and only ever attach to the primary entity.
func hasCorroboration(rec model.RawRecord) bool {
	return len(jurisdictionsOf(rec)) > 0 || len(addressTokens(rec)) > 0
}

// corroborates reports whether the record shares a jurisdiction or address
// fragment with the cluster, the secondary requirement for a
// name-similarity merge
func corroborates(rec model.RawRecord, c *cluster) bool {
	for _, j := range jurisdictionsOf(rec) {
		if c.jurisdictions[j] {
			return true
		}
	}

	shared := 0
	for _, tok := range addressTokens(rec) {
		if c.addrTokens[tok] {
			shared++
			if shared >= 2 {
				return true
			}
		}
	}
	return false
}

func jurisdictionsOf(rec model.RawRecord) []string {
	var out []string
	for _, key := range []string{"jurisdiction", "state_of_incorporation", "state"} {
		if v := rec.Attributes[key]; v != "" {
			out = append(out, normalizeJurisdiction(v))
		}
	}
	return out
}

// normalizeJurisdiction maps "DE", "de", and "us_de" onto one code
func normalizeJurisdiction(v string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(v)), "us_")
}

func addressTokens(rec model.RawRecord) []string {
	var out []string
	for _, key := range []string{"registered_address", "business_address", "address"} {
		if v := rec.Attributes[key]; v != "" {
			out = append(out, strings.Fields(NormalizeName(v))...)
		}
	}
	return out
}

func kindForRecord(rec model.RawRecord, subject model.Subject) model.SubjectKind {
	switch rec.Kind {
	case model.RecordRegistration, model.RecordFiling, model.RecordLien:
		return model.SubjectCompany
	case model.RecordOfficer:
		return model.SubjectPerson
	default:
		return subject.Kind
	}
}

func targetKind(rel model.RawRelation) model.SubjectKind {
	if rel.Type == model.RelationOfficerOf && rel.Reverse {
		return model.SubjectPerson
	}
	return model.SubjectCompany
}
