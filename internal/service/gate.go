package service

import "github.com/warden/warden/internal/model"

// RequireActive passes user through if it is active.
func RequireActive(user *model.User) (*model.User, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return user, nil
}

// RequireSuperuser passes user through if its stored record is a superuser.
func RequireSuperuser(user *model.User) (*model.User, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if !user.IsSuperuser {
		return nil, ErrForbidden
	}
	return user, nil
}

// RequireOwnerOrSuperuser allows actor to act on a resource owned by ownerID.
func RequireOwnerOrSuperuser(ownerID string, actor *model.User) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	if actor.IsSuperuser || actor.ID == ownerID {
		return nil
	}
	return ErrForbidden
}

// RequireNotSelf rejects an actor targeting their own account.
func RequireNotSelf(targetID string, actor *model.User) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	if actor.ID == targetID {
		return ErrSelfDeleteForbidden
	}
	return nil
}

// RequireNotSelfInBulk rejects the whole batch if any id is the actor's own.
func RequireNotSelfInBulk(targetIDs []string, actor *model.User) error {
	for _, id := range targetIDs {
		if err := RequireNotSelf(id, actor); err != nil {
			return err
		}
	}
	return nil
}
