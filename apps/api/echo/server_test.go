package echoapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/account"
	"github.com/trezcool/elimu/core/auth"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/quiz"
	appfs "github.com/trezcool/elimu/fs"
	emailsvc "github.com/trezcool/elimu/services/email"
	filestore "github.com/trezcool/elimu/services/files"
	dummydb "github.com/trezcool/elimu/storage/database/dummy"
	testutil "github.com/trezcool/elimu/tests"
)

const testPassword = "s3cr3t!pwd"

var errMissingToken = errorResponse{Message: "user not authenticated"}

type testApp struct {
	*Server
	tokens   *auth.TokenManager
	accounts account.Repository
	courses  course.Repository
	quizzes  quiz.Repository
	store    core.FileStore
	mail     *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) testApp {
	conf := &core.Config{
		AppName:          "Elimu",
		TestMode:         true,
		SecretKey:        "secret",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: "noreply@test.cd",
		Server: core.ServerConfig{
			JWTExpirationDelta: time.Hour,
			DisableReqLogs:     true,
		},
		Storage: core.StorageConfig{MaxUploadSize: "1M"},
	}
	logger := testutil.NewLogger(t)

	// set up DB & repos
	db, err := dummydb.Open()
	require.NoError(t, err)
	store, err := filestore.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	app := testApp{
		tokens:   auth.NewTokenManager(conf),
		accounts: dummydb.NewAccountRepository(db),
		courses:  dummydb.NewCourseRepository(db),
		quizzes:  dummydb.NewQuizRepository(db),
		store:    store,
		mail:     emailsvc.NewConsoleServiceMock(conf, logger),
	}

	// set up services
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, logger)

	accountSvc := account.NewService(app.accounts, app.mail)
	courseSvc := course.NewService(app.courses, db)

	app.Server = NewServer(ServerDeps{
		Conf:          conf,
		Logger:        logger,
		Tokens:        app.tokens,
		Authenticator: auth.NewAuthenticator(accountSvc, app.tokens),
		AccountSvc:    accountSvc,
		CourseSvc:     courseSvc,
		QuizSvc:       quiz.NewService(app.quizzes, courseSvc, store, logger),
		Validate:      validate,
		Translator:    translator,
	})
	return app
}

func (app testApp) createAccount(t *testing.T, role account.Role, firstName, lastName, uname string) account.Account {
	return testutil.CreateAccount(t, app.accounts, role, firstName, lastName, uname, testPassword)
}

func (app testApp) getToken(t *testing.T, acc account.Account) string {
	p := acc.GetProfile()
	token, err := app.tokens.Generate(auth.Identity{UserID: p.ID, Role: acc.Role(), DisplayName: p.FullName()})
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func (app testApp) do(req *http.Request, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	app.ServeHTTP(rec, req)
	return rec
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func (tt httpTest) run(t *testing.T, app testApp) {
	t.Run(tt.name, func(t *testing.T) {
		req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
		checkCodeAndData(t, tt, app.do(req, rec))
	})
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newUploadRequest builds a multipart POST; an empty fileName sends no file part.
func newUploadRequest(t *testing.T, path, token string, fields map[string]string, fileName, content string) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func TestServer_Home(t *testing.T) {
	app := setup(t)
	rec := app.do(newRequest(http.MethodGet, "/"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Elimu API!", rec.Body.String())
}
