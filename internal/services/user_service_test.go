package services

import (
	"fmt"
	"testing"

	"github.com/ArturMykhailiuk/sello-api/internal/models"
	"github.com/ArturMykhailiuk/sello-api/internal/n8n"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type UserServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	engine  *fakeEngine
	service UserService
	key     []byte
}

func (suite *UserServiceTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)
	suite.Require().NoError(db.AutoMigrate(&models.User{}, &models.WorkflowAITemplate{}))
	suite.db = db

	suite.key = []byte("0123456789abcdef0123456789abcdef")
	suite.engine = newFakeEngine()
	suite.service = NewUserService(db, suite.engine, suite.key)
}

func (suite *UserServiceTestSuite) createUser(name, email string) *models.User {
	user := &models.User{Name: name, Email: email}
	suite.Require().NoError(suite.db.Create(user).Error)
	return user
}

func (suite *UserServiceTestSuite) reload(id uint) *models.User {
	var user models.User
	suite.Require().NoError(suite.db.First(&user, id).Error)
	return &user
}

func (suite *UserServiceTestSuite) TestConnectProvisionsEngineAccount() {
	user := suite.createUser("Olena Kovalenko", "olena@example.com")

	status, err := suite.service.Connect(user.ID)
	suite.Require().NoError(err)
	suite.True(status.Enabled)
	suite.Equal("engine-user-1", status.EngineUserID)
	suite.Equal(1, suite.engine.calls["FindOrCreateUser"])
	suite.Equal([]string{"Olena", "Kovalenko"}, suite.engine.lastProvisionName)

	stored := suite.reload(user.ID)
	suite.True(stored.N8nEnabled)
	suite.Require().NotNil(stored.N8nUserID)
	suite.Equal("engine-user-1", *stored.N8nUserID)

	// The stored key is ciphertext; APIKey recovers the plaintext.
	suite.Require().NotNil(stored.N8nApiKey)
	suite.NotEqual("personal-key", *stored.N8nApiKey)
	suite.Equal("personal-key", suite.service.APIKey(stored))
}

func (suite *UserServiceTestSuite) TestConnectIsIdempotent() {
	user := suite.createUser("Olena Kovalenko", "olena@example.com")

	_, err := suite.service.Connect(user.ID)
	suite.Require().NoError(err)

	status, err := suite.service.Connect(user.ID)
	suite.Require().NoError(err)
	suite.True(status.Enabled)
	suite.Equal(1, suite.engine.calls["FindOrCreateUser"])
}

func (suite *UserServiceTestSuite) TestConnectSingleWordName() {
	user := suite.createUser("Madonna", "m@example.com")

	_, err := suite.service.Connect(user.ID)
	suite.Require().NoError(err)
	suite.Equal([]string{"Madonna", ""}, suite.engine.lastProvisionName)
}

func (suite *UserServiceTestSuite) TestConnectUnknownUser() {
	_, err := suite.service.Connect(9999)

	var notFound *NotFoundError
	suite.Require().ErrorAs(err, &notFound)
	suite.Empty(suite.engine.calls)
}

func (suite *UserServiceTestSuite) TestConnectEngineFailure() {
	user := suite.createUser("Olena Kovalenko", "olena@example.com")
	suite.engine.failures["FindOrCreateUser"] = fmt.Errorf("engine down")

	_, err := suite.service.Connect(user.ID)
	suite.Require().Error(err)

	stored := suite.reload(user.ID)
	suite.False(stored.N8nEnabled)
	suite.Nil(stored.N8nApiKey)
}

func (suite *UserServiceTestSuite) TestCheckStatusAlreadyConnected() {
	user := suite.createUser("Olena Kovalenko", "olena@example.com")
	_, err := suite.service.Connect(user.ID)
	suite.Require().NoError(err)

	status, err := suite.service.CheckStatus(user.ID)
	suite.Require().NoError(err)
	suite.True(status.Enabled)
	suite.False(status.AutoConnected)
	suite.Equal(0, suite.engine.calls["FindUserByEmail"])
}

func (suite *UserServiceTestSuite) TestCheckStatusAutoConnects() {
	user := suite.createUser("Olena Kovalenko", "olena@example.com")
	suite.engine.engineUser = &n8n.EngineUser{ID: "existing-engine-user", Email: user.Email}

	status, err := suite.service.CheckStatus(user.ID)
	suite.Require().NoError(err)
	suite.True(status.Enabled)
	suite.True(status.AutoConnected)
	suite.Equal("existing-engine-user", status.EngineUserID)

	// Auto-connected accounts fall back to the administrative key.
	stored := suite.reload(user.ID)
	suite.True(stored.N8nEnabled)
	suite.Equal("admin-key", suite.service.APIKey(stored))
}

func (suite *UserServiceTestSuite) TestCheckStatusNoEngineAccount() {
	user := suite.createUser("Olena Kovalenko", "olena@example.com")

	status, err := suite.service.CheckStatus(user.ID)
	suite.Require().NoError(err)
	suite.False(status.Enabled)

	stored := suite.reload(user.ID)
	suite.False(stored.N8nEnabled)
}

func (suite *UserServiceTestSuite) TestCheckStatusSwallowsLookupFailure() {
	user := suite.createUser("Olena Kovalenko", "olena@example.com")
	suite.engine.failures["FindUserByEmail"] = fmt.Errorf("engine down")

	status, err := suite.service.CheckStatus(user.ID)
	suite.Require().NoError(err)
	suite.False(status.Enabled)
}

func (suite *UserServiceTestSuite) TestAPIKeyDegradesOnBadCiphertext() {
	user := suite.createUser("Olena Kovalenko", "olena@example.com")
	garbage := "not-a-valid-ciphertext"
	suite.Require().NoError(suite.db.Model(user).Updates(map[string]interface{}{
		"n8n_api_key": garbage,
		"n8n_enabled": true,
	}).Error)

	stored := suite.reload(user.ID)
	suite.Equal("", suite.service.APIKey(stored))
}

func (suite *UserServiceTestSuite) TestAPIKeyEmptyWhenUnset() {
	user := suite.createUser("Olena Kovalenko", "olena@example.com")
	suite.Equal("", suite.service.APIKey(suite.reload(user.ID)))
}

func (suite *UserServiceTestSuite) TestGetUserByEmail() {
	suite.createUser("Olena Kovalenko", "olena@example.com")

	user, err := suite.service.GetUserByEmail("olena@example.com")
	suite.Require().NoError(err)
	suite.Require().NotNil(user)
	suite.Equal("Olena Kovalenko", user.Name)

	missing, err := suite.service.GetUserByEmail("nobody@example.com")
	suite.Require().NoError(err)
	suite.Nil(missing)
}

func TestUserServiceTestSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantFirst string
		wantLast  string
	}{
		{"two words", "Olena Kovalenko", "Olena", "Kovalenko"},
		{"three words", "Anna Maria Bach", "Anna", "Maria Bach"},
		{"single word", "Madonna", "Madonna", ""},
		{"empty", "", "User", ""},
		{"whitespace only", "   ", "User", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := splitName(tt.input)
			if first != tt.wantFirst || last != tt.wantLast {
				t.Errorf("splitName(%q) = (%q, %q), want (%q, %q)", tt.input, first, last, tt.wantFirst, tt.wantLast)
			}
		})
	}
}
