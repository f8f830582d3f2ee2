package viz

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
)

type ImageContainer struct {
	name string
	data []byte
}

func (i *ImageContainer) Name() string {
	return i.name
}

func (i *ImageContainer) Data() []byte {
	return i.data
}

type Producer interface {
	Name() string
	GetImage() *ImageContainer
	AddPlotOption(opt PlotOptions)
}

// Server renders registered producers to PNG and serves them, grouped into
// buckets. Images are only rendered for buckets viewed within the last second.
type Server struct {
	mu              sync.RWMutex
	images          map[string]map[string]*ImageContainer
	producerBuckets map[string]map[string]Producer
	lastViewed      map[string]time.Time
	srv             *http.Server
	updateInterval  time.Duration
	enabled         bool
}

func NewServer(port int, updateInterval time.Duration) *Server {
	s := &Server{
		images:          make(map[string]map[string]*ImageContainer),
		producerBuckets: make(map[string]map[string]Producer),
		lastViewed:      make(map[string]time.Time),
		srv:             &http.Server{Addr: fmt.Sprintf(":%d", port)},
		updateInterval:  updateInterval,
		enabled:         true,
	}
	s.srv.Handler = s.Handler()
	return s
}

func (s *Server) Enable(enable bool) {
	s.mu.Lock()
	s.enabled = enable
	s.mu.Unlock()
}

func (s *Server) Register(key string, p Producer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.producerBuckets[key]
	if !ok {
		bucket = make(map[string]Producer)
		s.producerBuckets[key] = bucket
	}
	bucket[p.Name()] = p
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Refresh renders every producer in recently viewed buckets.
func (s *Server) Refresh() {
	s.mu.RLock()
	if !s.enabled {
		s.mu.RUnlock()
		return
	}
	type job struct {
		bucket   string
		producer Producer
	}
	var jobs []job
	for bucketName, bucket := range s.producerBuckets {
		if time.Since(s.lastViewed[bucketName]) >= time.Second {
			continue
		}
		for _, producer := range bucket {
			jobs = append(jobs, job{bucketName, producer})
		}
	}
	s.mu.RUnlock()

	var wg sync.WaitGroup
	for _, j := range jobs {
		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			img := j.producer.GetImage()
			if img == nil {
				return
			}
			s.mu.Lock()
			mb, ok := s.images[j.bucket]
			if !ok {
				mb = make(map[string]*ImageContainer)
				s.images[j.bucket] = mb
			}
			mb[img.name] = img
			s.mu.Unlock()
		}(j)
	}
	wg.Wait()
}

func (s *Server) markViewed(bucket string) {
	s.mu.Lock()
	s.lastViewed[bucket] = time.Now()
	s.mu.Unlock()
}

func (s *Server) Run(ctx context.Context) error {
	go func() {
		ticker := time.NewTicker(s.updateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Refresh()
			}
		}
	}()

	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

var viewTemplate = template.Must(template.New("view").Parse(`<html><head><title>tonelink viz</title>
<script type="text/javascript">
	var refresh = true;
	function toggleRefresh() { refresh = !refresh; }
	function changeBucket() {
		window.location.href = '/view/' + document.getElementById('bucketSelector').value;
	}
	window.onload = function() {
		var imgs = document.getElementsByTagName('img');
		for (var i = 0; i < imgs.length; i++) {
			setInterval(function(image) {
				if (refresh) {
					image.src = image.src.split("?")[0] + "?" + new Date().getTime();
				}
			}, {{.Interval}}, imgs[i]);
		}
	}
</script></head>
<body style="background-color: black">
<select id="bucketSelector" onchange="changeBucket()">
{{range .Buckets}}<option value="{{.}}"{{if eq . $.Bucket}} selected{{end}}>{{.}}</option>{{end}}
</select>
<button onclick="toggleRefresh()">Refresh?</button>
<div style="display: flex; flex-direction: row; flex-wrap: wrap">
{{range .Images}}<div><img src="/img/{{$.Bucket}}/{{.}}?{{$.Now}}" /></div>{{end}}
</div></body></html>`))

func (s *Server) Handler() http.Handler {
	handler := httprouter.New()

	handler.GET("/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		s.mu.RLock()
		keys := make([]string, 0, len(s.producerBuckets))
		for name := range s.producerBuckets {
			keys = append(keys, name)
		}
		s.mu.RUnlock()
		if len(keys) == 0 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		sort.Strings(keys)
		http.Redirect(w, r, "/view/"+url.PathEscape(keys[0]), http.StatusFound)
	})

	handler.GET("/view/:bucket", func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		bucket := params.ByName("bucket")

		s.mu.RLock()
		items, ok := s.producerBuckets[bucket]
		buckets := make([]string, 0, len(s.producerBuckets))
		for key := range s.producerBuckets {
			buckets = append(buckets, key)
		}
		images := make([]string, 0, len(items))
		for key := range items {
			images = append(images, key)
		}
		s.mu.RUnlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		s.markViewed(bucket)
		sort.Strings(buckets)
		sort.Strings(images)

		w.Header().Add("Content-Type", "text/html")
		viewTemplate.Execute(w, map[string]interface{}{
			"Bucket":   bucket,
			"Buckets":  buckets,
			"Images":   images,
			"Interval": s.updateInterval.Milliseconds(),
			"Now":      time.Now().UnixMicro(),
		})
	})

	handler.GET("/img/:bucket/:img", func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		bucketName := params.ByName("bucket")
		s.markViewed(bucketName)

		s.mu.RLock()
		img, ok := s.images[bucketName][params.ByName("img")]
		s.mu.RUnlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		w.Header().Add("Content-Type", "image/png")
		w.Write(img.data)
	})

	return handler
}
