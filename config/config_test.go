package config

import (
	"path/filepath"
	"testing"

	"github.com/akmonengine/quill/solver"
	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/gomega"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	g := NewWithT(t)
	cfg := DefaultConfig()

	g.Expect(cfg.Validate()).To(Succeed())
	g.Expect(cfg.Gravity).To(Equal(mgl64.Vec3{0, -9.81, 0}))
	g.Expect(cfg.Solver.MaxIterations).To(Equal(solver.DefaultMaxIterations))
	g.Expect(cfg.Substep()).To(BeNumerically("~", DefaultTimestep, 1e-15))
}

func TestParse_OverridesDefaults(t *testing.T) {
	g := NewWithT(t)

	cfg, err := Parse([]byte(`
timestep: 0.02
substeps: 4
gravity: [0, -1.62, 0]
solver:
  max_iterations: 120
sleep:
  enabled: false
`))

	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(cfg.Timestep).To(Equal(0.02))
	g.Expect(cfg.Substeps).To(Equal(4))
	g.Expect(cfg.Substep()).To(BeNumerically("~", 0.005, 1e-15))
	g.Expect(cfg.Gravity).To(Equal(mgl64.Vec3{0, -1.62, 0}))
	g.Expect(cfg.Solver.MaxIterations).To(Equal(120))
	g.Expect(cfg.Sleep.Enabled).To(BeFalse())

	// untouched keys keep their defaults
	g.Expect(cfg.Solver.Baumgarte).To(Equal(DefaultConfig().Solver.Baumgarte))
	g.Expect(cfg.Contact.FeatureTolerance).To(Equal(DefaultConfig().Contact.FeatureTolerance))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		err  error
	}{
		{"zero timestep", "timestep: 0", ErrInvalidTimestep},
		{"no substeps", "substeps: 0", ErrInvalidSubsteps},
		{"no workers", "workers: 0", ErrInvalidWorkers},
		{"empty broadphase", "broadphase: {max_shapes: 0}", ErrInvalidCapacity},
		{"negative envelope", "contact: {envelope: -1}", ErrInvalidContact},
		{"baumgarte above one", "solver: {baumgarte: 1.5}", ErrInvalidSolver},
		{"no solver iterations", "solver: {max_iterations: 0}", ErrInvalidSolver},
		{"sleep without threshold", "sleep: {enabled: true, velocity: 0}", ErrInvalidSleep},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			_, err := Parse([]byte(tt.yaml))
			g.Expect(err).To(MatchError(tt.err))
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	g := NewWithT(t)

	_, err := Parse([]byte("gravity: [0, 1]"))
	g.Expect(err).To(HaveOccurred())

	_, err = Parse([]byte("timestep: ["))
	g.Expect(err).To(HaveOccurred())
}

func TestSaveLoad(t *testing.T) {
	g := NewWithT(t)
	path := filepath.Join(t.TempDir(), "world.yaml")

	cfg := DefaultConfig()
	cfg.Workers = 4
	cfg.Contact.Envelope = 0.05
	g.Expect(Save(path, cfg)).To(Succeed())

	loaded, err := Load(path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(loaded).To(Equal(cfg))
}

func TestLoad_MissingFile(t *testing.T) {
	g := NewWithT(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	g.Expect(err).To(HaveOccurred())
}

func TestConfig_Conversions(t *testing.T) {
	g := NewWithT(t)
	cfg := DefaultConfig()
	cfg.Substeps = 2
	cfg.Solver.Baumgarte = 0.3

	params := cfg.Params()
	g.Expect(params.Timestep).To(BeNumerically("~", DefaultTimestep/2, 1e-15))
	g.Expect(params.Baumgarte).To(Equal(0.3))

	nncg := cfg.NNCG()
	g.Expect(nncg.MaxIterations).To(Equal(cfg.Solver.MaxIterations))
	g.Expect(nncg.Epsilon).To(Equal(cfg.Solver.Epsilon))

	opts := cfg.ContactOptions()
	g.Expect(opts.FeatureTolerance).To(Equal(cfg.Contact.FeatureTolerance))
	g.Expect(opts.Envelope).To(BeZero())
}
