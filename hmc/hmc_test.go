package hmc

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kcarline/hammock/logging"
	"github.com/kcarline/hammock/metric"
	"github.com/kcarline/hammock/model"
	"github.com/kcarline/hammock/rand"
	"github.com/kcarline/hammock/writer"
)

func testSetup(t *testing.T, dim int) (model.Model, *rand.Generator) {
	m, err := model.NewNormal(dim)
	if err != nil {
		t.Fatalf("could not build model: %v", err)
	}
	gen, err := rand.NewChainGenerator(42, 0)
	if err != nil {
		t.Fatalf("could not build generator: %v", err)
	}
	return m, gen
}

func TestDualAverage(t *testing.T) {
	assert := assert.New(t)

	da := dualAverage{delta: 0.8, gamma: DefaultGamma, kappa: DefaultKappa, t0: DefaultT0}
	da.restart(math.Log(10.0))

	// Consistently low acceptance must drive the stepsize down
	eps := math.Exp(da.mu)
	for i := 0; i < 50; i++ {
		eps = da.learn(0.1)
	}
	assert.Less(eps, 1.0)
	final := da.complete()
	assert.True(final > 0 && !math.IsInf(final, 0) && !math.IsNaN(final))

	// And consistently high acceptance must drive it up from the same anchor
	da.restart(math.Log(10.0))
	for i := 0; i < 50; i++ {
		eps = da.learn(1.0)
	}
	assert.Greater(eps, 1.0)
}

func TestSlowWindowEnds(t *testing.T) {
	assert := assert.New(t)

	m, gen := testSetup(t, 2)
	s := NewDiag(m, gen)

	// Stan's default schedule: doubling windows, last one stretched to the
	// terminal buffer
	s.SetWindowParams(1000, 75, 50, 25, logging.Nop())
	assert.Equal([]int{100, 150, 250, 450, 950}, s.slowWindowEnds())

	assert.True(s.inSlowWindow(75))
	assert.False(s.inSlowWindow(74))
	assert.True(s.inSlowWindow(949))
	assert.False(s.inSlowWindow(950))
}

func TestWindowShrink(t *testing.T) {
	assert := assert.New(t)

	m, gen := testSetup(t, 2)
	s := NewDiag(m, gen)

	log := &logging.Capture{}
	s.SetWindowParams(100, 75, 50, 25, log)
	assert.Len(log.Warns, 1)
	assert.Equal(15, s.initBuffer)
	assert.Equal(10, s.termBuffer)
	assert.Equal(75, s.window)

	// Zero warmup disables windowing without blowing up
	s2 := NewDiag(m, gen)
	s2.SetWindowParams(0, 75, 50, 25, &logging.Capture{})
	assert.False(s2.windowed)
	assert.Nil(s2.slowWindowEnds())
}

func TestDiagSetMetric(t *testing.T) {
	assert := assert.New(t)

	m, gen := testSetup(t, 3)
	s := NewDiag(m, gen)

	assert.NoError(s.SetMetric([]float64{0.5, 1.0, 2.0}))
	assert.Equal([]float64{0.5, 1.0, 2.0}, s.Metric())

	assert.Error(s.SetMetric([]float64{1.0}))
	assert.Error(s.SetMetric([]float64{1.0, -1.0, 1.0}))
	assert.Error(s.SetMetric([]float64{1.0, 0.0, 1.0}))
	assert.Error(s.SetMetric([]float64{1.0, math.Inf(1), 1.0}))
}

func TestDenseSetMetric(t *testing.T) {
	assert := assert.New(t)

	m, gen := testSetup(t, 2)
	s := NewDense(m, gen)

	good := metric.Identity(2)
	good.SetSym(0, 1, 0.5)
	assert.NoError(s.SetMetric(good))
	assert.InDelta(0.5, s.Metric().At(0, 1), 1e-12)

	// Indefinite matrix must be rejected
	bad := metric.Identity(2)
	bad.SetSym(0, 1, 2.0)
	assert.Error(s.SetMetric(bad))

	assert.Error(s.SetMetric(metric.Identity(3)))
}

func runSmoke(t *testing.T, s interface {
	Run(ctx context.Context, init []float64, warmup, samples, thin, refresh int,
		saveWarmup bool, log logging.Logger, sampleW, diagW writer.RowWriter,
		metricW writer.RecordWriter, chainID, numChains int) error
}, warmup, samples int, saveWarmup bool) (*writer.Buffer, *writer.Buffer, *writer.BufferRecord) {
	sampleW := &writer.Buffer{}
	diagW := &writer.Buffer{}
	metricW := &writer.BufferRecord{}

	err := s.Run(context.Background(), []float64{0.1, -0.1}, warmup, samples, 1, 0,
		saveWarmup, logging.Nop(), sampleW, diagW, metricW, 1, 1)
	assert.NoError(t, err)
	return sampleW, diagW, metricW
}

func TestUnitRun(t *testing.T) {
	assert := assert.New(t)

	m, gen := testSetup(t, 2)
	s := NewUnit(m, gen)
	s.SetMaxDepth(4)

	sampleW, diagW, metricW := runSmoke(t, s, 10, 10, false)

	assert.Len(sampleW.Headers, 1)
	assert.Equal([]string{"lp__", "accept_stat__", "stepsize__", "n_leapfrog__",
		"divergent__", "energy__", "x.1", "x.2"}, sampleW.Headers[0])
	assert.Len(sampleW.Rows, 10)
	for _, row := range sampleW.Rows {
		assert.Len(row, 8)
		for _, v := range row {
			assert.False(math.IsNaN(v))
			assert.False(math.IsInf(v, 0))
		}
	}

	assert.Len(diagW.Headers, 1)
	assert.Equal([]string{"lp__", "accept_stat__", "divergent__", "x.1", "x.2",
		"g_x.1", "g_x.2"}, diagW.Headers[0])
	assert.Len(diagW.Rows, 10)

	assert.True(metricW.Begun)
	assert.True(metricW.Ended)
	assert.Equal("unit_e", metricW.Fields["metric_type"])
}

func TestUnitRunSaveWarmup(t *testing.T) {
	assert := assert.New(t)

	m, gen := testSetup(t, 2)
	s := NewUnit(m, gen)
	s.SetMaxDepth(4)

	sampleW, _, _ := runSmoke(t, s, 10, 10, true)
	assert.Len(sampleW.Rows, 20)
}

func TestDiagRunAdapts(t *testing.T) {
	assert := assert.New(t)

	m, gen := testSetup(t, 2)
	s := NewDiag(m, gen)
	s.SetMaxDepth(4)
	s.SetWindowParams(60, 10, 10, 20, logging.Nop())

	sampleW, _, metricW := runSmoke(t, s, 60, 20, false)

	assert.Len(sampleW.Rows, 20)
	assert.Equal("diag_e", metricW.Fields["metric_type"])

	inv, ok := metricW.Fields["inv_metric"].([]float64)
	assert.True(ok)
	assert.Len(inv, 2)
	for _, v := range inv {
		assert.True(v > 0)
		// Adaptation happened: the recorded metric is no longer exactly unit
		assert.NotEqual(1.0, v)
	}
}

func TestDenseRun(t *testing.T) {
	assert := assert.New(t)

	m, gen := testSetup(t, 2)
	s := NewDense(m, gen)
	s.SetMaxDepth(4)
	s.SetWindowParams(60, 10, 10, 20, logging.Nop())

	sampleW, _, metricW := runSmoke(t, s, 60, 20, false)

	assert.Len(sampleW.Rows, 20)
	assert.Equal("dense_e", metricW.Fields["metric_type"])

	rows, ok := metricW.Fields["inv_metric"].([][]float64)
	assert.True(ok)
	assert.Len(rows, 2)
	assert.InDelta(rows[0][1], rows[1][0], 1e-12)
}

func TestRunThin(t *testing.T) {
	assert := assert.New(t)

	m, gen := testSetup(t, 2)
	s := NewUnit(m, gen)
	s.SetMaxDepth(4)

	sampleW := &writer.Buffer{}
	err := s.Run(context.Background(), []float64{0, 0}, 0, 10, 3, 0, false,
		logging.Nop(), sampleW, &writer.Buffer{}, &writer.BufferRecord{}, 1, 1)
	assert.NoError(err)

	// Iterations 0,3,6,9 survive the thinning stride
	assert.Len(sampleW.Rows, 4)
}

func TestRunInterrupted(t *testing.T) {
	assert := assert.New(t)

	m, gen := testSetup(t, 2)
	s := NewUnit(m, gen)
	s.SetMaxDepth(4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Run(ctx, []float64{0, 0}, 5, 5, 1, 0, false, logging.Nop(),
		&writer.Buffer{}, &writer.Buffer{}, &writer.BufferRecord{}, 1, 1)
	assert.Error(err)
}

func TestRunBadInit(t *testing.T) {
	assert := assert.New(t)

	m, gen := testSetup(t, 2)
	s := NewUnit(m, gen)

	err := s.Run(context.Background(), []float64{0}, 5, 5, 1, 0, false,
		logging.Nop(), &writer.Buffer{}, &writer.Buffer{}, &writer.BufferRecord{}, 1, 1)
	assert.Error(err)
}
