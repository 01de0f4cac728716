package feedforward

import "compress/lzw"
import "errors"
import "fmt"
import "io"
import "os"

import "github.com/vmihailenco/msgpack/v5"

import "github.com/neurlang/sincnet/layer"

// ErrWeights is returned when stored weights do not fit the network.
var ErrWeights = errors.New("feedforward: stored weights do not match the network")

type record struct {
	Name  string    `msgpack:"name"`
	Shape []int     `msgpack:"shape"`
	Data  []float64 `msgpack:"data"`
}

// WriteCompressedWeightsToFile writes model weights to a lzw file
func (f FeedforwardNetwork) WriteCompressedWeightsToFile(name string) error {
	return WriteParametersToFile(name, f.Parameters())
}

// WriteCompressedWeights writes model weights to a writer
func (f FeedforwardNetwork) WriteCompressedWeights(w io.Writer) error {
	return WriteParameters(w, f.Parameters())
}

// ReadCompressedWeightsFromFile reads model weights from a lzw file
func (f FeedforwardNetwork) ReadCompressedWeightsFromFile(name string) error {
	return ReadParametersFromFile(name, f.Parameters())
}

// ReadCompressedWeights reads model weights from a reader
func (f FeedforwardNetwork) ReadCompressedWeights(r io.Reader) error {
	return ReadParameters(r, f.Parameters())
}

// WriteParametersToFile writes params to a lzw file
func WriteParametersToFile(name string, params []*layer.Param) error {
	file, err := os.Create(name)
	if err != nil {
		return err
	}
	err = WriteParameters(file, params)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return err
}

// ReadParametersFromFile reads params from a lzw file
func ReadParametersFromFile(name string, params []*layer.Param) error {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()
	return ReadParameters(file, params)
}

// WriteParameters writes params as lzw compressed msgpack records.
func WriteParameters(w io.Writer, params []*layer.Param) error {
	lw := lzw.NewWriter(w, lzw.LSB, 8)
	enc := msgpack.NewEncoder(lw)
	if err := enc.EncodeArrayLen(len(params)); err != nil {
		return err
	}
	for _, p := range params {
		err := enc.Encode(record{Name: p.Name, Shape: p.Value.Shape, Data: p.Value.Data})
		if err != nil {
			return err
		}
	}
	return lw.Close()
}

// ReadParameters overwrites the values of params in place with the records
// stored under their names. Every param must be present with the same shape.
func ReadParameters(r io.Reader, params []*layer.Param) error {
	lr := lzw.NewReader(r, lzw.LSB, 8)
	defer lr.Close()
	dec := msgpack.NewDecoder(lr)
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	stored := make(map[string]record, n)
	for i := 0; i < n; i++ {
		var rec record
		if err := dec.Decode(&rec); err != nil {
			return err
		}
		stored[rec.Name] = rec
	}
	for _, p := range params {
		rec, ok := stored[p.Name]
		if !ok {
			return fmt.Errorf("%w: %s is missing", ErrWeights, p.Name)
		}
		if len(rec.Data) != p.Value.Len() || len(rec.Shape) != p.Value.Dims() {
			return fmt.Errorf("%w: %s has shape %v, want %v", ErrWeights, p.Name, rec.Shape, p.Value.Shape)
		}
		for i := range rec.Shape {
			if rec.Shape[i] != p.Value.Shape[i] {
				return fmt.Errorf("%w: %s has shape %v, want %v", ErrWeights, p.Name, rec.Shape, p.Value.Shape)
			}
		}
	}
	for _, p := range params {
		copy(p.Value.Data, stored[p.Name].Data)
	}
	return nil
}
