package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/apps/api/echo"
	"github.com/trezcool/elimu/assets"
	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/company"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/ebook"
	"github.com/trezcool/elimu/core/level"
	"github.com/trezcool/elimu/core/progress"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/services/cache"
	"github.com/trezcool/elimu/services/email"
	"github.com/trezcool/elimu/services/logger"
	"github.com/trezcool/elimu/storage/database/boiledrepos"
	"github.com/trezcool/elimu/storage/database/sqlxrepos"
	"github.com/trezcool/elimu/tests"
)

var (
	errMissingToken = httpErr{Error: "user not authenticated"}
	errForbidden    = httpErr{Error: "permission denied"}

	ctxBg = context.Background()
)

type fixture struct {
	conf      *core.Config
	app       *echoapi.Server
	users     user.Repository
	companies company.Repository
	courses   course.Repository
	ebooks    ebook.Repository
	levels    level.ServiceInterface
}

func setup(t *testing.T) fixture {
	db, xdb, conf := testutil.PrepareDB(t)
	require.NoError(t, core.ParseEmailTemplates(assets.FS, assets.EmailTemplatesDir, true))
	emailsvc.ResetSentMessages()

	// set up repos
	usrRepo := sqlxrepos.NewUserRepository(xdb)
	companyRepo := sqlxrepos.NewCompanyRepository(xdb)
	courseRepo := sqlxrepos.NewCourseRepository(xdb)
	ebookRepo := sqlxrepos.NewEbookRepository(xdb)

	// set up services
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	usrSvc := user.NewService(usrRepo)
	courseSvc := course.NewService(courseRepo)
	ebookSvc := ebook.NewService(ebookRepo)
	progressSvc := progress.NewService(boiledrepos.NewProgressRepository(db), courseSvc, ebookSvc, conf)
	quizSvc := quiz.NewService(db, boiledrepos.NewQuizRepository(db), courseSvc)
	mailer := emailsvc.NewConsoleServiceMock(conf)
	quizSvc.OnComplete(progressSvc.QuizCompletedHandler(mailer))
	levelSvc := level.NewService(sqlxrepos.NewLevelRepository(xdb), cachesvc.NewLevelCache(rdb, conf), logger)

	// set up server
	app := echoapi.NewServer(conf, logger, &echoapi.Deps{
		UserSvc:     usrSvc,
		PwdReset:    user.NewPasswordReset(usrSvc, mailer, conf),
		CompanySvc:  company.NewService(companyRepo),
		CourseSvc:   courseSvc,
		EbookSvc:    ebookSvc,
		ProgressSvc: progressSvc,
		QuizSvc:     quizSvc,
		LevelSvc:    levelSvc,
		Limiter:     cachesvc.NewLoginLimiter(rdb, conf),
		Validate:    validate,
		Translator:  translator,
	})

	return fixture{
		conf:      conf,
		app:       app,
		users:     usrRepo,
		companies: companyRepo,
		courses:   courseRepo,
		ebooks:    ebookRepo,
		levels:    levelSvc,
	}
}

// seedLevels creates Beginner [0, 99], Explorer [100, 499] and Master [500, ∞).
func (f fixture) seedLevels(t *testing.T) {
	ctx := context.Background()
	for _, nl := range []level.NewLevel{
		{Name: "Beginner", MinPoints: 0, MaxPoints: ip(99)},
		{Name: "Explorer", MinPoints: 100, MaxPoints: ip(499)},
		{Name: "Master", MinPoints: 500},
	} {
		_, err := f.levels.Create(ctx, nl)
		require.NoError(t, err)
	}
}

func (f fixture) token(t *testing.T, usr user.User) string {
	token, err := echoapi.GenerateToken(f.conf, echoapi.GetUserClaims(f.conf, usr))
	require.NoError(t, err)
	return token
}

// do runs a request against the server and returns the recorded response.
func (f fixture) do(method, path, token string, body ...interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if len(body) > 0 {
		_ = json.NewEncoder(&buf).Encode(body[0])
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     interface{}
	token    string
	wantCode int
	wantData interface{}
}

func (f fixture) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			var rec *httptest.ResponseRecorder
			if tt.body != nil {
				rec = f.do(method, tt.path, tt.token, tt.body)
			} else {
				rec = f.do(method, tt.path, tt.token)
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func marshalObj(t *testing.T, obj interface{}) string {
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	return string(data)
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	if tt.wantData != nil {
		assert.JSONEq(t, marshalObj(t, tt.wantData), rec.Body.String())
	}
}

// decode unmarshals the body of rec into v.
func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
