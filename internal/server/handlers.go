package server

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"net/http"

	"github.com/perchdav/perch/internal/logger"
	"github.com/perchdav/perch/pkg/dav/acl"
	"github.com/perchdav/perch/pkg/dav/davxml"
)

// Property names served by the PROPFIND handler.
var (
	propACL                     = xml.Name{Space: "DAV:", Local: "acl"}
	propSupportedPrivilegeSet   = xml.Name{Space: "DAV:", Local: "supported-privilege-set"}
	propCurrentUserPrivilegeSet = xml.Name{Space: "DAV:", Local: "current-user-privilege-set"}
	propACLRestrictions         = xml.Name{Space: "DAV:", Local: "acl-restrictions"}
	propInheritedACLSet         = xml.Name{Space: "DAV:", Local: "inherited-acl-set"}
	propPrincipalCollectionSet  = xml.Name{Space: "DAV:", Local: "principal-collection-set"}
)

var allProps = []xml.Name{
	propACL,
	propSupportedPrivilegeSet,
	propCurrentUserPrivilegeSet,
	propACLRestrictions,
	propInheritedACLSet,
	propPrincipalCollectionSet,
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("DAV", "1, access-control")
	w.Header().Set("Allow", "OPTIONS, PROPFIND, ACL")
	w.WriteHeader(http.StatusOK)
}

// handlePropfind serves the access control properties at Depth 0 or 1.
func (s *Server) handlePropfind(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rctx := acl.NewRequestContext(actorFrom(ctx))

	res, err := s.resolver.Resolve(ctx, r.URL.Path)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if res == nil {
		http.Error(w, "resource not found", http.StatusNotFound)
		return
	}

	names, err := parsePropfind(r.Body)
	if err != nil {
		http.Error(w, "malformed propfind body", http.StatusBadRequest)
		return
	}

	depth := r.Header.Get("Depth")
	if depth == "" {
		depth = "0"
	}
	if depth != "0" && depth != "1" {
		http.Error(w, "unsupported depth", http.StatusBadRequest)
		return
	}

	ms := &davxml.Multistatus{}
	ms.Responses = append(ms.Responses, s.propfindResource(r, rctx, res, names, nil))

	if depth == "1" && res.IsCollection() {
		// One ancestor walk shared by every child.
		inherited, disabled, err := s.engine.InheritedACEsForChildren(ctx, res)
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		if disabled {
			inherited = nil
		}

		children, err := s.resolver.Children(ctx, res)
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		for _, child := range children {
			ms.Responses = append(ms.Responses, s.propfindResource(r, rctx, child, names, inherited))
		}
	}

	s.writeXML(w, r, http.StatusMultiStatus, ms)
}

// parsePropfind returns the requested property names. An empty body and
// allprop both request every property this server has.
func parsePropfind(body io.Reader) ([]xml.Name, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return allProps, nil
	}

	var pf davxml.Propfind
	if err := xml.Unmarshal(raw, &pf); err != nil {
		return nil, err
	}
	if pf.Prop == nil || len(pf.Prop.Names) == 0 {
		return allProps, nil
	}
	return pf.Prop.Names, nil
}

// propfindResource evaluates the requested properties on one resource,
// grouping results by status. Properties the actor may not read go into a
// 403 propstat; names this server does not serve go into a 404 propstat.
func (s *Server) propfindResource(
	r *http.Request,
	rctx *acl.RequestContext,
	res acl.Resource,
	names []xml.Name,
	inherited []acl.ACE,
) davxml.Response {
	ctx := r.Context()

	found := davxml.Prop{}
	var haveFound bool
	var forbidden, notFound []davxml.EmptyElement

	for _, name := range names {
		guard, known := propertyGuard(name)
		if !known {
			notFound = append(notFound, davxml.EmptyElement{Name: name})
			continue
		}

		allowed, err := s.allowed(ctx, rctx, res, guard, inherited)
		if err != nil {
			logger.ErrorCtx(ctx, "privilege check failed during propfind",
				"resource", res.URL(), "error", err)
			forbidden = append(forbidden, davxml.EmptyElement{Name: name})
			continue
		}
		if !allowed {
			forbidden = append(forbidden, davxml.EmptyElement{Name: name})
			continue
		}

		if err := s.renderProperty(ctx, rctx, res, name, &found); err != nil {
			logger.ErrorCtx(ctx, "property computation failed",
				"resource", res.URL(), "property", name.Local, "error", err)
			forbidden = append(forbidden, davxml.EmptyElement{Name: name})
			continue
		}
		haveFound = true
	}

	response := davxml.Response{Href: res.URL()}
	if haveFound {
		response.Propstats = append(response.Propstats, davxml.Propstat{
			Prop:   found,
			Status: davxml.StatusText(http.StatusOK, "OK"),
		})
	}
	if len(forbidden) > 0 {
		response.Propstats = append(response.Propstats, davxml.Propstat{
			Prop:   davxml.Prop{Unknown: forbidden},
			Status: davxml.StatusText(http.StatusForbidden, "Forbidden"),
		})
	}
	if len(notFound) > 0 {
		response.Propstats = append(response.Propstats, davxml.Propstat{
			Prop:   davxml.Prop{Unknown: notFound},
			Status: davxml.StatusText(http.StatusNotFound, "Not Found"),
		})
	}
	return response
}

// allowed reports whether the actor holds the privilege on the resource,
// using the precomputed inherited entries when the caller has them.
func (s *Server) allowed(
	ctx context.Context,
	rctx *acl.RequestContext,
	res acl.Resource,
	privilege acl.Privilege,
	inherited []acl.ACE,
) (bool, error) {
	var err error
	if inherited != nil {
		err = s.engine.CheckPrivilegesFast(ctx, rctx, res, []acl.Privilege{privilege}, inherited)
	} else {
		err = s.engine.CheckPrivileges(ctx, rctx, res, []acl.Privilege{privilege}, false)
	}

	var accessDenied *acl.AccessDeniedError
	if errors.As(err, &accessDenied) {
		return false, nil
	}
	return err == nil, err
}

// propertyGuard maps a property to the privilege reading it requires.
func propertyGuard(name xml.Name) (acl.Privilege, bool) {
	switch name {
	case propACL, propInheritedACLSet:
		return acl.PrivReadACL, true
	case propCurrentUserPrivilegeSet:
		return acl.PrivReadCUPS, true
	case propSupportedPrivilegeSet, propACLRestrictions, propPrincipalCollectionSet:
		return acl.PrivRead, true
	default:
		return acl.Privilege{}, false
	}
}

// renderProperty computes one property value into prop.
func (s *Server) renderProperty(
	ctx context.Context,
	rctx *acl.RequestContext,
	res acl.Resource,
	name xml.Name,
	prop *davxml.Prop,
) error {
	switch name {
	case propACL:
		effective, err := s.engine.EffectiveACL(ctx, res)
		if err != nil {
			return err
		}
		if effective == nil {
			effective = &acl.ACL{}
		}
		prop.ACL = davxml.FromACL(effective)

	case propSupportedPrivilegeSet:
		prop.SupportedPrivilegeSet = davxml.FromPrivilegeSet(acl.SupportedPrivileges(res))

	case propCurrentUserPrivilegeSet:
		privileges, err := s.engine.CurrentPrivileges(ctx, rctx, res)
		if err != nil {
			return err
		}
		prop.CurrentUserPrivilegeSet = davxml.FromPrivileges(privileges)

	case propACLRestrictions:
		prop.ACLRestrictions = davxml.Restrictions()

	case propInheritedACLSet:
		urls, err := s.engine.InheritedACLSet(ctx, res)
		if err != nil {
			return err
		}
		prop.InheritedACLSet = &davxml.InheritedACLSet{Hrefs: urls}

	case propPrincipalCollectionSet:
		prop.PrincipalCollectionSet = &davxml.PrincipalCollectionSet{
			Hrefs: res.PrincipalCollections(),
		}
	}
	return nil
}

// handleACL processes the ACL method: authorize, parse, merge.
func (s *Server) handleACL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rctx := acl.NewRequestContext(actorFrom(ctx))

	res, err := s.resolver.Resolve(ctx, r.URL.Path)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if res == nil {
		http.Error(w, "resource not found", http.StatusNotFound)
		return
	}

	if err := s.engine.CheckPrivileges(ctx, rctx, res, []acl.Privilege{acl.PrivWriteACL}, false); err != nil {
		s.denied(w, r, rctx, err)
		return
	}

	var element davxml.ACLElement
	if err := xml.NewDecoder(r.Body).Decode(&element); err != nil {
		http.Error(w, "malformed acl body", http.StatusBadRequest)
		return
	}
	submitted, err := davxml.ToACL(&element)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.engine.MergeACL(ctx, rctx, res, submitted); err != nil {
		var precondition *acl.PreconditionError
		if errors.As(err, &precondition) {
			s.writeXML(w, r, http.StatusForbidden, davxml.PreconditionBody(precondition))
			return
		}
		s.internalError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// denied translates a privilege check failure: unauthenticated actors get
// a challenge so they can retry with credentials, authenticated ones get
// the need-privileges error body.
func (s *Server) denied(w http.ResponseWriter, r *http.Request, rctx *acl.RequestContext, err error) {
	var accessDenied *acl.AccessDeniedError
	if !errors.As(err, &accessDenied) {
		s.internalError(w, r, err)
		return
	}
	if !rctx.Actor.Authenticated() {
		s.challenge(w, r)
		return
	}
	s.writeXML(w, r, http.StatusForbidden, davxml.NeedPrivilegesBody(accessDenied))
}

// handleToken exchanges basic credentials for a bearer token.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	principalURL, ok := s.directory.Authenticate(req.Username, req.Password)
	if !ok {
		logger.WarnCtx(r.Context(), "token request with bad credentials", "username", req.Username)
		s.challenge(w, r)
		return
	}

	token, err := s.tokens.Issue(principalURL)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"access_token": token,
		"token_type":   "Bearer",
		"principal":    principalURL,
	})
}

func (s *Server) writeXML(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", `application/xml; charset="utf-8"`)
	w.WriteHeader(status)

	io.WriteString(w, xml.Header)
	if err := xml.NewEncoder(w).Encode(body); err != nil {
		logger.ErrorCtx(r.Context(), "response encoding failed", "error", err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	logger.ErrorCtx(r.Context(), "request failed", "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
