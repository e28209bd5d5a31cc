package core

// Method names a compression path. The string form is the column prefix
// used in reports.
type Method string

const (
	MethodNetSightGzip Method = "ns_gzip"
	MethodNetSightZstd Method = "ns_zstd"
	MethodGzip         Method = "gzip"
	MethodZstd         Method = "zstd"
)

// Methods lists every method in report column order.
var Methods = []Method{MethodNetSightGzip, MethodNetSightZstd, MethodGzip, MethodZstd}

// MethodResult is the outcome of one compression method over one file.
type MethodResult struct {
	Method        Method
	RatioPercent  float64 // (original - compressed) / original * 100, negative on expansion
	ElapsedMicros float64
}

// BenchmarkResult holds every method's outcome for one capture file.
// A non-nil Err marks an error row; Results is then empty.
type BenchmarkResult struct {
	File    string
	Packets int
	Bytes   int
	Results map[Method]MethodResult
	Err     error
}

// Failed reports whether the file could not be benchmarked.
func (r *BenchmarkResult) Failed() bool {
	return r.Err != nil
}

// Result returns the outcome for m and whether it is present.
func (r *BenchmarkResult) Result(m Method) (MethodResult, bool) {
	res, ok := r.Results[m]
	return res, ok
}
