package command

// AuthContext holds what the current message has authenticated. It lives for one message only.
type AuthContext struct {
	users   map[string]bool
	courses map[int64]bool
	tokens  map[string]bool
}

func NewAuthContext() *AuthContext {
	return &AuthContext{
		users:   make(map[string]bool),
		courses: make(map[int64]bool),
		tokens:  make(map[string]bool),
	}
}

func (a *AuthContext) AddUser(address string)      { a.users[address] = true }
func (a *AuthContext) HasUser(address string) bool { return a.users[address] }

func (a *AuthContext) AddCourse(id int64)      { a.courses[id] = true }
func (a *AuthContext) HasCourse(id int64) bool { return a.courses[id] }

// AddToken records a temporary token purpose, eg. user.PurposeRegister.
func (a *AuthContext) AddToken(purpose string)      { a.tokens[purpose] = true }
func (a *AuthContext) HasToken(purpose string) bool { return a.tokens[purpose] }
