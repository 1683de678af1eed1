package server

import (
	"picshare/internal/models"

	"github.com/gofiber/fiber/v2"
)

// LikeImage handles POST /api/images/:id/like
// @Summary Like an image
// @Tags social
// @Produce json
// @Security BearerAuth
// @Param id path int true "Image id"
// @Success 200 {object} models.LikeState
// @Failure 404 {object} models.ErrorResponse
// @Router /images/{id}/like [post]
func (s *Server) LikeImage(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	imageID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	state, err := s.socialService.LikeImage(c.UserContext(), userID, imageID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(state)
}

// UnlikeImage handles DELETE /api/images/:id/like
// @Summary Unlike an image
// @Tags social
// @Produce json
// @Security BearerAuth
// @Param id path int true "Image id"
// @Success 200 {object} models.LikeState
// @Failure 404 {object} models.ErrorResponse
// @Router /images/{id}/like [delete]
func (s *Server) UnlikeImage(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	imageID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	state, err := s.socialService.UnlikeImage(c.UserContext(), userID, imageID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(state)
}

// GetLikers handles GET /api/images/:id/likes
// @Summary Users who like an image
// @Tags social
// @Produce json
// @Param id path int true "Image id"
// @Success 200 {array} models.UserSummary
// @Failure 404 {object} models.ErrorResponse
// @Router /images/{id}/likes [get]
func (s *Server) GetLikers(c *fiber.Ctx) error {
	imageID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	users, err := s.socialService.ListLikers(c.UserContext(), s.optionalUserID(c), imageID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(users)
}

// FollowUser handles POST /api/users/:userId/follow
// @Summary Follow a user
// @Tags social
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User id"
// @Success 200 {object} models.FollowState
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{userId}/follow [post]
func (s *Server) FollowUser(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	state, err := s.socialService.Follow(c.UserContext(), userID, targetID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(state)
}

// UnfollowUser handles DELETE /api/users/:userId/follow
// @Summary Unfollow a user
// @Tags social
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User id"
// @Success 200 {object} models.FollowState
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{userId}/follow [delete]
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	state, err := s.socialService.Unfollow(c.UserContext(), userID, targetID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(state)
}

// GetFollowers handles GET /api/users/:userId/followers
// @Summary A user's followers
// @Tags social
// @Produce json
// @Param userId path int true "User id"
// @Success 200 {array} models.UserSummary
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{userId}/followers [get]
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	users, err := s.socialService.ListFollowers(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(users)
}

// GetFollowing handles GET /api/users/:userId/following
// @Summary Users a user follows
// @Tags social
// @Produce json
// @Param userId path int true "User id"
// @Success 200 {array} models.UserSummary
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{userId}/following [get]
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	users, err := s.socialService.ListFollowing(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(users)
}

// GetUser handles GET /api/users/:userId
// @Summary Public profile of a user
// @Tags users
// @Produce json
// @Param userId path int true "User id"
// @Success 200 {object} models.PublicProfile
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{userId} [get]
func (s *Server) GetUser(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	profile, err := s.userService.GetUser(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(profile)
}
