package main

import "context"
import "fmt"
import "os"
import "os/signal"

import "github.com/spf13/cobra"
import "go.uber.org/zap"

import "github.com/neurlang/sincnet/centroid"
import "github.com/neurlang/sincnet/config"
import "github.com/neurlang/sincnet/datasets"
import "github.com/neurlang/sincnet/device"
import "github.com/neurlang/sincnet/net/sincge2e"
import "github.com/neurlang/sincnet/trainer"

var (
	configPath string
	resume     bool
	pgo        bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "train_sincge2e",
	Short: "Train the sinc GE2E speaker embedder",
	Long: `train_sincge2e trains a speaker embedder on raw waveforms.

The training set is read from train_dir/<speaker>/*.wav. Every utterance is
cut or padded to fix_len seconds. With n_gpu > 0 the devices with the most
free memory are selected and one tower is run per device; otherwise one tower
runs per physical CPU core.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.Flags().BoolVar(&resume, "resume", false, "continue from the weights and centroids in model_dir")
	rootCmd.Flags().BoolVar(&pgo, "pgo", false, "write a CPU profile to default.pgo until interrupted")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every step")
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func towers(ctx context.Context, cfg *config.Config, log *zap.Logger) (int, error) {
	host := device.Host()
	if cfg.NGPU == 0 {
		log.Info("training on cpu",
			zap.String("cpu", host.Brand),
			zap.Int("cores", host.Physical),
			zap.Bool("avx2", host.AVX2),
			zap.Bool("avx512", host.AVX512))
		return host.Towers(0), nil
	}
	devs, err := device.NvidiaSMI{}.Devices(ctx)
	if err != nil {
		return 0, err
	}
	ids, err := device.Select(devs, cfg.NGPU)
	if err != nil {
		return 0, err
	}
	log.Info("selected devices", zap.String("visible_devices", device.VisibleDevices(ids)))
	return host.Towers(len(ids)), nil
}

func run(cmd *cobra.Command, args []string) error {
	if pgo {
		stopPGO, err := startPGO("default.pgo")
		if err != nil {
			return err
		}
		defer stopPGO()
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	h := cfg.HyperParameters()
	h.Shuffle = true
	if cfg.LogFile != "" {
		if err := h.SetLogger(cfg.LogFile); err != nil {
			return err
		}
	} else {
		h.SetZapLogger(log)
	}

	n, err := towers(ctx, cfg, log)
	if err != nil {
		return err
	}
	model, err := sincge2e.New(cfg.Model(), cfg.Seed)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.ModelDir, 0755); err != nil {
		return err
	}
	if err := cfg.Save(cfg.Path("config.yaml")); err != nil {
		return err
	}
	store, err := centroid.OpenStore(centroid.StoreOptions{Dir: cfg.Path("centroids"), Logger: log})
	if err != nil {
		return err
	}
	defer store.Close()
	weights := cfg.Path("weights.lzw")
	table, err := trainer.Resume(ctx, model, resume, weights, store)
	if err != nil {
		return err
	}

	train, err := datasets.LoadWavDir(ctx, cfg.TrainDir, cfg.SampleRate, cfg.FixLen, cfg.Workers, log)
	if err != nil {
		return err
	}
	if train.NumSpeakers() > cfg.NSpeaker {
		return fmt.Errorf("%s has %d speakers, n_speaker is %d", cfg.TrainDir, train.NumSpeakers(), cfg.NSpeaker)
	}
	valid := train
	if cfg.ValidDir != "" {
		if valid, err = datasets.LoadWavDir(ctx, cfg.ValidDir, cfg.SampleRate, cfg.FixLen, cfg.Workers, log); err != nil {
			return err
		}
	}

	t := trainer.New(model, h, table, cfg.NSpeaker, n)
	best := -1.0
	evaluate := trainer.NewEvaluateFunc(t, valid, &best, weights, store)
	loop := trainer.NewLoopFunc(t, train, os.Stderr, evaluate)
	if err := loop(ctx); err != nil {
		return err
	}
	log.Info("done", zap.Float64("best_accuracy", best), zap.String("weights", weights))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
