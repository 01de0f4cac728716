package datasets

import "context"
import "errors"
import "fmt"
import "io"
import "os"
import "path/filepath"
import "sort"

import "github.com/go-audio/audio"
import "github.com/go-audio/wav"
import "go.uber.org/zap"

import "github.com/neurlang/sincnet/parallel"

// ErrFormat is returned for wav files that are not mono at the expected rate.
var ErrFormat = errors.New("datasets: unsupported wav format")

// ReadWav decodes a mono wav stream at sampleRate into n samples in [-1, 1].
// Longer recordings are cut, shorter ones are padded with silence.
func ReadWav(r io.ReadSeeker, sampleRate, n int) ([]float64, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a wav file", ErrFormat)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf.Format.NumChannels != 1 {
		return nil, fmt.Errorf("%w: %d channels, want mono", ErrFormat, buf.Format.NumChannels)
	}
	if buf.Format.SampleRate != sampleRate {
		return nil, fmt.Errorf("%w: %d Hz, want %d", ErrFormat, buf.Format.SampleRate, sampleRate)
	}
	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = int(dec.BitDepth)
	}
	if depth <= 0 || depth > 32 {
		return nil, fmt.Errorf("%w: bit depth %d", ErrFormat, depth)
	}
	// 8 bit PCM is unsigned around 128
	var offset int
	if depth == 8 {
		offset = 128
	}
	scale := 1 / float64(int64(1)<<(depth-1))
	out := make([]float64, n)
	for i := 0; i < n && i < len(buf.Data); i++ {
		out[i] = float64(buf.Data[i]-offset) * scale
	}
	return out, nil
}

// ReadWavFile is ReadWav on a file.
func ReadWavFile(name string, sampleRate, n int) ([]float64, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	samples, err := ReadWav(f, sampleRate, n)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return samples, nil
}

// WriteWav encodes samples in [-1, 1] as 16 bit mono PCM.
func WriteWav(w io.WriteSeeker, samples []float64, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		s = max(-1, min(1, s))
		data[i] = int(s * 32767)
	}
	err := enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	})
	if err != nil {
		return err
	}
	return enc.Close()
}

// WriteWavFile is WriteWav to a new file.
func WriteWavFile(name string, samples []float64, sampleRate int) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	err = WriteWav(f, samples, sampleRate)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// LoadWavDir loads root/<speaker>/*.wav. Speakers get ids in sorted
// directory order and every recording is fitted to fixLen seconds. Files are
// decoded by workers goroutines; the first failure aborts the load.
func LoadWavDir(ctx context.Context, root string, sampleRate, fixLen, workers int, log *zap.Logger) (*Dataset, error) {
	if log == nil {
		log = zap.NewNop()
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	d := &Dataset{}
	var jobs []Utterance
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		files, err := filepath.Glob(filepath.Join(root, e.Name(), "*.wav"))
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			continue
		}
		sort.Strings(files)
		id := len(d.Speakers)
		d.Speakers = append(d.Speakers, e.Name())
		for _, f := range files {
			jobs = append(jobs, Utterance{Speaker: id, Path: f})
		}
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("%w: no wav files under %s", ErrEmpty, root)
	}
	n := fixLen * sampleRate
	d.Utterances, err = parallel.Map(ctx, jobs, workers, func(ctx context.Context, u Utterance) (Utterance, error) {
		samples, err := ReadWavFile(u.Path, sampleRate, n)
		if err != nil {
			return u, err
		}
		u.Samples = samples
		return u, nil
	})
	if err != nil {
		return nil, err
	}
	log.Info("loaded utterances",
		zap.String("root", root),
		zap.Int("speakers", d.NumSpeakers()),
		zap.Int("utterances", d.Len()))
	return d, nil
}
