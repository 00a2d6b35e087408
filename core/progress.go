package core

import (
	"io"
	"math"
	"strconv"
	"sync"
	"time"
)

var suffixes = [5]string{"B", "KB", "MB", "GB", "TB"}

func round(val float64, roundOn float64, places int) (newVal float64) {
	var round float64
	pow := math.Pow(10, float64(places))
	digit := pow * val
	_, div := math.Modf(digit)
	if div >= roundOn {
		round = math.Ceil(digit)
	} else {
		round = math.Floor(digit)
	}
	newVal = round / pow
	return
}

// HumanFileSize renders a byte count like "238.42 MB".
func HumanFileSize(size float64) string {
	if size < 1 {
		return "0 B"
	}
	base := math.Log(size) / math.Log(1024)
	index := int(math.Floor(base))
	if index >= len(suffixes) {
		index = len(suffixes) - 1
	}
	getSize := round(size/math.Pow(1024, float64(index)), .5, 2)
	return strconv.FormatFloat(getSize, 'f', -1, 64) + " " + suffixes[index]
}

// ProgressReporter receives human-readable transfer progress. done is set
// on the final report only.
type ProgressReporter func(written, total string, done bool)

type progressCounter struct {
	mutex      sync.Mutex
	written    int64
	total      string
	onProgress ProgressReporter
	printTimer *time.Ticker
	done       chan struct{}
	once       sync.Once
}

// NewProgressCounter returns a writer that counts the bytes written through
// it and reports them every two seconds and once more on Close. A total of
// zero or less is reported as "?".
func NewProgressCounter(total int64, onProgress ProgressReporter) io.WriteCloser {
	this := &progressCounter{total: "?", onProgress: onProgress}
	if total > 0 {
		this.total = HumanFileSize(float64(total))
	}
	this.printTimer = time.NewTicker(2 * time.Second)
	this.done = make(chan struct{})
	go func() {
		for {
			select {
			case <-this.printTimer.C:
				this.reportProgress(false)
			case <-this.done:
				return
			}
		}
	}()
	return this
}

func (this *progressCounter) Write(p []byte) (n int, e error) {
	n = len(p)
	this.mutex.Lock()
	this.written += int64(n)
	this.mutex.Unlock()
	return n, nil
}

func (this *progressCounter) Close() error {
	this.once.Do(func() {
		this.printTimer.Stop()
		close(this.done)
		this.reportProgress(true)
	})
	return nil
}

func (this *progressCounter) reportProgress(done bool) {
	this.mutex.Lock()
	written := this.written
	this.mutex.Unlock()
	this.onProgress(HumanFileSize(float64(written)), this.total, done)
}
