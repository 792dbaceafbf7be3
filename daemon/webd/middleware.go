package webd

import (
	"crypto/subtle"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"

	ghandlers "github.com/gorilla/handlers"
	"github.com/rs/cors"
)

// tokenAuthenticationMiddleware checks for the configured token in the
// Authorization header (optionally as a Bearer token) or the api_token param.
// Invalid tokens get a 403. If no token is configured, all requests pass.
func (s *WebDaemon) tokenAuthenticationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		validToken := s.Config.Token
		if validToken == "" {
			next.ServeHTTP(w, r)
			return
		}

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			// eg. /location?api_token=asdfasdfb
			token = r.URL.Query().Get("api_token")
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(validToken)) != 1 {
			s.logger.Warn("Invalid token",
				"method", r.Method, "url", r.URL.Path,
				"remote-addr", r.RemoteAddr, "user-agent", r.UserAgent())
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *WebDaemon) corsMiddleware(next http.Handler) http.Handler {
	origins := s.Config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept", "Authorization"},
	}).Handler(next)
}

func contentTypeMiddlewareFunc(contentType string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", contentType)
			next.ServeHTTP(w, r)
		})
	}
}

// writeCommonLog writes an Apache Common Log Format line.
// Forwarded-for hops are appended to the host.
func writeCommonLog(w io.Writer, p ghandlers.LogFormatterParams) {
	host, _, err := net.SplitHostPort(p.Request.RemoteAddr)
	if err != nil {
		host = p.Request.RemoteAddr
	}
	for _, v := range p.Request.Header.Values("X-Forwarded-For") {
		host += "->" + v
	}
	user := "-"
	if p.URL.User != nil && p.URL.User.Username() != "" {
		user = p.URL.User.Username()
	}
	uri := p.Request.RequestURI
	if uri == "" {
		uri = p.URL.RequestURI()
	}
	quoted := strconv.Quote(p.Request.Method + " " + uri + " " + p.Request.Proto)

	var b strings.Builder
	b.WriteString(host)
	b.WriteString(" - ")
	b.WriteString(user)
	b.WriteString(" [")
	b.WriteString(p.TimeStamp.Format("02/Jan/2006:15:04:05 -0700"))
	b.WriteString("] ")
	b.WriteString(quoted)
	b.WriteString(" ")
	b.WriteString(strconv.Itoa(p.StatusCode))
	b.WriteString(" ")
	b.WriteString(strconv.Itoa(p.Size))
	b.WriteString("\n")
	_, _ = io.WriteString(w, b.String())
}

var accessLog io.Writer = os.Stdout

func (s *WebDaemon) loggingMiddleware(next http.Handler) http.Handler {
	return ghandlers.CustomLoggingHandler(accessLog, next, writeCommonLog)
}
