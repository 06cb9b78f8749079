package main

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/sfi2k7/blueroute"
)

type user struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// userStore is the in-memory resource behind the demo /api/users routes
type userStore struct {
	mu     sync.Mutex
	users  map[int]user
	nextID int
}

func newUserStore() *userStore {
	return &userStore{users: make(map[int]user), nextID: 1}
}

func (s *userStore) list(c *blueroute.Context) (*blueroute.Response, error) {
	s.mu.Lock()
	out := make([]user, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return blueroute.JSON(http.StatusOK, out)
}

func (s *userStore) create(c *blueroute.Context) (*blueroute.Response, error) {
	var in user
	if err := c.ParseBody(&in); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, blueroute.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	s.mu.Lock()
	in.ID = s.nextID
	s.nextID++
	s.users[in.ID] = in
	s.mu.Unlock()

	res, err := blueroute.JSON(http.StatusCreated, in)
	if err != nil {
		return nil, err
	}
	return res.SetHeader("Location", "/api/users/"+strconv.Itoa(in.ID)), nil
}

func (s *userStore) show(c *blueroute.Context) (*blueroute.Response, error) {
	u, err := s.find(c)
	if err != nil {
		return nil, err
	}
	return blueroute.JSON(http.StatusOK, u)
}

func (s *userStore) remove(c *blueroute.Context) (*blueroute.Response, error) {
	u, err := s.find(c)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	delete(s.users, u.ID)
	s.mu.Unlock()
	return blueroute.NoContent(), nil
}

func (s *userStore) find(c *blueroute.Context) (user, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		// digits only, so the id is out of range
		return user{}, blueroute.NewHTTPError(http.StatusNotFound, "user not found")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return user{}, blueroute.NewHTTPError(http.StatusNotFound, "user not found")
	}
	return u, nil
}
