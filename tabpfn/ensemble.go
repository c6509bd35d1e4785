package tabpfn

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/MAyub114/tabPFN/preprocessing"
	tabpfnErrors "github.com/MAyub114/tabPFN/pkg/errors"
)

// featureScaler is the preprocessing contract each ensemble member fits on
// its view of the context and reuses on query rows.
type featureScaler interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
}

// temperatureLadder holds the softmax temperatures the ensemble cycles
// through, as multiples of the query's local distance scale. Low
// temperatures attend sharply to the nearest context rows, high ones
// weigh the neighborhood broadly.
var temperatureLadder = [...]float64{0.1, 0.25, 0.5, 1.0}

const (
	// maxContextPerMember caps how many context rows a single ensemble
	// member attends over.
	maxContextPerMember = 1024

	// fullContextThreshold is the context size below which every member
	// keeps all rows instead of subsampling.
	fullContextThreshold = 64

	// localityNeighbors is the neighbor rank whose squared distance sets
	// the attention bandwidth for a query.
	localityNeighbors = 8

	// minAttentionScale floors the bandwidth when the query coincides
	// with its nearest context rows, keeping the weight mass on the
	// exact matches.
	minAttentionScale = 1e-12
)

// ensembleMember is one fitted configuration: a feature view, a scaled
// copy of its context rows, and the temperature of its attention kernel.
type ensembleMember struct {
	features    []int
	labels      []int
	scaled      *mat.Dense
	scaler      featureScaler
	temperature float64
}

// buildEnsemble derives all member configurations from the stored context.
// The generator is seeded from Seed alone, so the same training set and
// seed always produce an identical ensemble.
func (c *TabPFNClassifier) buildEnsemble() error {
	rng := rand.New(rand.NewPCG(uint64(c.Seed), uint64(c.Seed)))
	rows, cols := c.contextX.Dims()

	c.members = make([]ensembleMember, 0, c.NEnsembleConfigurations)
	for k := 0; k < c.NEnsembleConfigurations; k++ {
		member, err := c.buildMember(rng, k, rows, cols)
		if err != nil {
			return err
		}
		c.members = append(c.members, member)
	}
	return nil
}

func (c *TabPFNClassifier) buildMember(rng *rand.Rand, k, rows, cols int) (ensembleMember, error) {
	features := permutation(rng, cols)
	// Every third member drops a quarter of the features so the ensemble
	// does not commit to a single feature view.
	if k%3 == 1 && cols > 1 {
		keep := (cols*3 + 3) / 4
		if keep < 1 {
			keep = 1
		}
		features = features[:keep]
	}

	context := sampleContext(rng, rows)

	temperature := temperatureLadder[k%len(temperatureLadder)]

	var scaler featureScaler
	if k%2 == 0 {
		scaler = preprocessing.NewStandardScalerDefault()
	} else {
		scaler = preprocessing.NewMinMaxScalerDefault()
	}

	sub := submatrix(c.contextX, context, features)
	if err := scaler.Fit(sub); err != nil {
		return ensembleMember{}, tabpfnErrors.Wrap(err, "failed to fit ensemble preprocessor")
	}
	scaled, err := scaler.Transform(sub)
	if err != nil {
		return ensembleMember{}, tabpfnErrors.Wrap(err, "failed to scale ensemble context")
	}

	labels := make([]int, len(context))
	for i, r := range context {
		labels[i] = c.contextY[r]
	}

	return ensembleMember{
		features:    features,
		labels:      labels,
		scaled:      asDense(scaled),
		scaler:      scaler,
		temperature: temperature,
	}, nil
}

// accumulate adds this member's posterior for one query row into probs.
// The member never mutates shared state, so rows can be scored from
// multiple goroutines concurrently.
func (m *ensembleMember) accumulate(row, probs []float64) error {
	query := mat.NewDense(1, len(m.features), nil)
	for j, f := range m.features {
		query.Set(0, j, row[f])
	}
	scaledQuery, err := m.scaler.Transform(query)
	if err != nil {
		return err
	}
	q := asDense(scaledQuery).RawRowView(0)

	ctxRows, _ := m.scaled.Dims()
	dists := make([]float64, ctxRows)
	for i := 0; i < ctxRows; i++ {
		ctx := m.scaled.RawRowView(i)
		dist := 0.0
		for j := range q {
			diff := q[j] - ctx[j]
			dist += diff * diff
		}
		dists[i] = dist
	}

	// Normalizing by the query's own neighborhood scale keeps the kernel
	// focused on a comparable number of context rows no matter how the
	// member's feature view and preprocessing stretch the distances.
	scale := m.temperature * localScale(dists)
	logits := make([]float64, ctxRows)
	maxLogit := math.Inf(-1)
	for i, dist := range dists {
		logits[i] = -dist / scale
		if logits[i] > maxLogit {
			maxLogit = logits[i]
		}
	}

	// Shift by the max logit before exponentiating so the weight mass
	// never underflows to zero.
	total := 0.0
	classWeight := make([]float64, len(probs))
	for i := 0; i < ctxRows; i++ {
		w := math.Exp(logits[i] - maxLogit)
		classWeight[m.labels[i]] += w
		total += w
	}
	for cls := range classWeight {
		probs[cls] += classWeight[cls] / total
	}
	return nil
}

// localScale returns the squared distance from the query to its
// localityNeighbors-th nearest context row, floored at minAttentionScale.
func localScale(dists []float64) float64 {
	sorted := append([]float64(nil), dists...)
	sort.Float64s(sorted)

	k := localityNeighbors
	if k >= len(sorted) {
		k = len(sorted) - 1
	}
	if scale := sorted[k]; scale > minAttentionScale {
		return scale
	}
	return minAttentionScale
}

// sampleContext picks the context rows one member attends over. Small
// contexts are used whole; larger ones are subsampled without replacement
// so members see different views of the training set.
func sampleContext(rng *rand.Rand, rows int) []int {
	if rows <= fullContextThreshold {
		return allIndices(rows)
	}

	size := (rows*9 + 9) / 10
	if size > maxContextPerMember {
		size = maxContextPerMember
	}

	indices := allIndices(rows)
	for i := 0; i < size; i++ {
		j := i + rng.IntN(rows-i)
		indices[i], indices[j] = indices[j], indices[i]
	}
	sampled := indices[:size]
	sort.Ints(sampled)
	return sampled
}

func permutation(rng *rand.Rand, n int) []int {
	indices := allIndices(n)
	rng.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
	return indices
}

func allIndices(n int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

func submatrix(X *mat.Dense, rows, cols []int) *mat.Dense {
	out := mat.NewDense(len(rows), len(cols), nil)
	for i, r := range rows {
		for j, c := range cols {
			out.Set(i, j, X.At(r, c))
		}
	}
	return out
}

func asDense(m mat.Matrix) *mat.Dense {
	if d, ok := m.(*mat.Dense); ok {
		return d
	}
	return mat.DenseCopyOf(m)
}
