package main

import "fmt"
import "os"
import "path/filepath"

import "github.com/spf13/cobra"

import "github.com/neurlang/sincnet/centroid"
import "github.com/neurlang/sincnet/config"
import "github.com/neurlang/sincnet/datasets"
import "github.com/neurlang/sincnet/inference"
import "github.com/neurlang/sincnet/net/feedforward"
import "github.com/neurlang/sincnet/net/sincge2e"
import "github.com/neurlang/sincnet/tensor"

var (
	modelDir  string
	speaker   int
	threshold float64
)

var rootCmd = &cobra.Command{
	Use:          "infer_sincge2e",
	Short:        "Speaker verification with a trained sinc GE2E model",
	SilenceUsage: true,
}

var enrollCmd = &cobra.Command{
	Use:   "enroll --speaker ID FILE.wav...",
	Short: "Set a speaker centroid from recordings",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := open()
		if err != nil {
			return err
		}
		defer s.store.Close()
		x, err := s.read(args...)
		if err != nil {
			return err
		}
		if err := inference.Enroll(s.model, s.table, speaker, x); err != nil {
			return err
		}
		if err := s.store.Save(cmd.Context(), s.table); err != nil {
			return err
		}
		fmt.Printf("enrolled speaker %d from %d utterances\n", speaker, len(args))
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify --speaker ID FILE.wav",
	Short: "Check whether a recording belongs to a speaker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := open()
		if err != nil {
			return err
		}
		defer s.store.Close()
		x, err := s.read(args[0])
		if err != nil {
			return err
		}
		score, ok, err := inference.Verify(s.model, s.table, speaker, x, threshold)
		if err != nil {
			return err
		}
		fmt.Printf("%s\tspeaker %d\tscore %.4f\taccept %v\n", args[0], speaker, score, ok)
		return nil
	},
}

var identifyCmd = &cobra.Command{
	Use:   "identify FILE.wav...",
	Short: "Find the most similar enrolled speaker",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := open()
		if err != nil {
			return err
		}
		defer s.store.Close()
		for _, name := range args {
			x, err := s.read(name)
			if err != nil {
				return err
			}
			id, score, err := inference.Identify(s.model, s.table, x)
			if err != nil {
				return err
			}
			fmt.Printf("%s\tspeaker %d\tscore %.4f\n", name, id, score)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&modelDir, "model", "m", "model", "directory written by train_sincge2e")
	enrollCmd.Flags().IntVarP(&speaker, "speaker", "s", 0, "speaker id")
	verifyCmd.Flags().IntVarP(&speaker, "speaker", "s", 0, "claimed speaker id")
	verifyCmd.Flags().Float64VarP(&threshold, "threshold", "t", 0.7, "minimum cosine similarity to accept")
	rootCmd.AddCommand(enrollCmd, verifyCmd, identifyCmd)
}

type session struct {
	cfg   *config.Config
	model *sincge2e.Model
	store *centroid.Store
	table *centroid.Table
}

func open() (*session, error) {
	cfg, err := config.Load(filepath.Join(modelDir, "config.yaml"))
	if err != nil {
		return nil, err
	}
	cfg.ModelDir = modelDir
	model, err := sincge2e.New(cfg.Model(), cfg.Seed)
	if err != nil {
		return nil, err
	}
	if err := feedforward.ReadParametersFromFile(cfg.Path("weights.lzw"), model.Parameters()); err != nil {
		return nil, err
	}
	store, err := centroid.OpenStore(centroid.StoreOptions{Dir: cfg.Path("centroids")})
	if err != nil {
		return nil, err
	}
	table, err := store.Load(rootCmd.Context(), cfg.EmbeddingDim)
	if err != nil {
		store.Close()
		return nil, err
	}
	return &session{cfg: cfg, model: model, store: store, table: table}, nil
}

func (s *session) read(names ...string) (*tensor.Tensor, error) {
	n := s.model.NumSamples()
	x := tensor.New(len(names), n)
	for i, name := range names {
		samples, err := datasets.ReadWavFile(name, s.cfg.SampleRate, n)
		if err != nil {
			return nil, err
		}
		copy(x.Row(i), samples)
	}
	return x, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
