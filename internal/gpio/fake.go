package gpio

import "errors"

// FakeReader is a test double that returns scripted input values.
type FakeReader struct {
	// Samples contains scripted (present, reset) values to return.
	// Each call to Read() consumes the next sample.
	Samples []Sample

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// Sample represents a single input reading.
type Sample struct {
	Present bool
	Reset   bool
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []Sample) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeReader) Read() (bool, bool, error) {
	if f.ReadError != nil {
		return false, false, f.ReadError
	}

	if len(f.Samples) == 0 {
		return false, false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample.Present, sample.Reset, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the reader to the beginning of samples.
func (f *FakeReader) Reset() {
	f.index = 0
	f.Closed = false
}

// Command records a single relay command.
type Command struct {
	Lights bool
	Fan    bool
}

// FakeWriter records relay commands for test assertions.
type FakeWriter struct {
	// Commands contains every Set call in order.
	Commands []Command

	// Closed tracks if Close was called
	Closed bool

	// SetError, if set, will be returned by Set()
	SetError error
}

// NewFakeWriter creates a FakeWriter.
func NewFakeWriter() *FakeWriter {
	return &FakeWriter{}
}

// Set records the relay command.
func (f *FakeWriter) Set(lights, fan bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Commands = append(f.Commands, Command{Lights: lights, Fan: fan})
	return nil
}

// Last returns the most recent command, or a zero Command if none were issued.
func (f *FakeWriter) Last() Command {
	if len(f.Commands) == 0 {
		return Command{}
	}
	return f.Commands[len(f.Commands)-1]
}

// Close marks the writer as closed.
func (f *FakeWriter) Close() error {
	f.Closed = true
	return nil
}
