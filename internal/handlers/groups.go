package handlers

import (
	"encoding/json"
	"time"

	"github.com/corex/corex-api/internal/metrics"
	"github.com/corex/corex-api/internal/middleware"
	"github.com/corex/corex-api/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (h *Handler) GetGroups(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var groups []models.Group
	if err := h.db.
		Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("group_members.user_id = ?", userID).
		Find(&groups).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error fetching groups",
		})
	}

	summaries := make([]models.GroupSummary, 0, len(groups))
	for _, g := range groups {
		var count int64
		h.db.Model(&models.GroupMember{}).Where("group_id = ?", g.ID).Count(&count)
		summaries = append(summaries, models.GroupSummary{
			Group:       g,
			MemberCount: count,
			IsCreator:   g.CreatedBy == userID,
		})
	}

	return c.JSON(fiber.Map{"groups": summaries})
}

func (h *Handler) CreateGroup(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req models.CreateGroupRequest
	if !h.parseBody(c, &req) {
		return nil
	}

	group := models.Group{
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   userID,
	}

	// Creator becomes the first member in the same transaction.
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		member := models.GroupMember{GroupID: group.ID, UserID: userID}
		return tx.Create(&member).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error creating group",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"group": models.GroupSummary{Group: group, MemberCount: 1, IsCreator: true},
	})
}

func (h *Handler) GetGroupMembers(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid group ID",
		})
	}

	if !h.isGroupMember(groupID, userID) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Group not found",
		})
	}

	var members []models.GroupMember
	h.db.Where("group_id = ?", groupID).Preload("User").Find(&members)

	result := make([]models.MemberInfo, 0, len(members))
	for _, m := range members {
		result = append(result, models.MemberInfo{
			ID:       m.UserID,
			Username: m.User.Username,
			Email:    m.User.Email,
			JoinedAt: m.JoinedAt,
		})
	}

	return c.JSON(fiber.Map{"members": result})
}

// InviteToGroup issues an invitation code and emails it. Creator only.
func (h *Handler) InviteToGroup(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	now := time.Now()

	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid group ID",
		})
	}

	var req models.InviteRequest
	if !h.parseBody(c, &req) {
		return nil
	}

	var group models.Group
	if err := h.db.Where("id = ? AND created_by = ?", groupID, userID).First(&group).Error; err != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Not authorized to invite to this group",
		})
	}

	invite, err := h.registry.IssueGroupInvite(groupID, userID, req.Email, now)
	if err != nil {
		h.log.Error("invite issuance failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error sending invitation",
		})
	}
	metrics.CodesIssued.WithLabelValues("group_invite").Inc()

	if err := h.mail.SendGroupInvitation(req.Email, group.Name, invite.Code); err != nil {
		// The invite stands even when the email bounces; the code can
		// still be passed along out of band.
		h.log.Warn("invitation email failed",
			zap.String("recipient", req.Email), zap.Error(err))
	}

	return c.JSON(fiber.Map{"message": "Invitation sent successfully"})
}

// JoinGroup redeems an invitation code.
func (h *Handler) JoinGroup(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	now := time.Now()

	var req models.JoinGroupRequest
	if !h.parseBody(c, &req) {
		return nil
	}

	// Membership is checked against a non-consuming lookup first: an
	// AlreadyMember rejection must not burn the code.
	invite, err := h.registry.LookupGroupInvite(req.Code, now)
	if err != nil {
		return h.respondCodeError(c, "group_invite",
			"Invalid invitation code", "This invitation has expired",
			"Error joining group", err)
	}

	var existing models.GroupMember
	if err := h.db.Where("group_id = ? AND user_id = ?", invite.GroupID, userID).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Already a member of this group",
		})
	}

	// Consume the code. A concurrent redemption of the same code loses
	// here and observes NotFound; expiry between the two calls stays 410.
	if _, err := h.registry.RedeemGroupInvite(req.Code, now); err != nil {
		return h.respondCodeError(c, "group_invite",
			"Invalid invitation code", "This invitation has expired",
			"Error joining group", err)
	}
	metrics.CodesRedeemed.WithLabelValues("group_invite", "ok").Inc()

	member := models.GroupMember{GroupID: invite.GroupID, UserID: userID}
	if err := h.db.Create(&member).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error joining group",
		})
	}

	var group models.Group
	if err := h.db.First(&group, "id = ?", invite.GroupID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Group no longer exists",
		})
	}

	h.notifyMemberJoined(group, userID)

	var count int64
	h.db.Model(&models.GroupMember{}).Where("group_id = ?", group.ID).Count(&count)

	return c.JSON(fiber.Map{
		"group": models.GroupSummary{
			Group:       group,
			MemberCount: count,
			IsCreator:   group.CreatedBy == userID,
		},
	})
}

func (h *Handler) LeaveGroup(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid group ID",
		})
	}

	var group models.Group
	if err := h.db.First(&group, "id = ?", groupID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Group not found",
		})
	}

	if group.CreatedBy == userID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Group creator cannot leave the group",
		})
	}

	result := h.db.Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&models.GroupMember{})
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Not a member of this group",
		})
	}

	return c.JSON(fiber.Map{"message": "Successfully left the group"})
}

// ShareGoal issues a sharing code for one of the caller's goals and
// emails it to every co-member of the group.
func (h *Handler) ShareGoal(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	now := time.Now()

	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid group ID",
		})
	}
	goalID, err := uuid.Parse(c.Params("goalId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid goal ID",
		})
	}

	if !h.isGroupMember(groupID, userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Not a member of this group",
		})
	}

	var goal models.Goal
	if err := h.db.Where("id = ? AND user_id = ?", goalID, userID).First(&goal).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Goal not found",
		})
	}

	shared, err := h.registry.IssueGoalShare(goalID, groupID, userID, now)
	if err != nil {
		h.log.Error("share issuance failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error sharing goal",
		})
	}
	metrics.CodesIssued.WithLabelValues("goal_share").Inc()

	var group models.Group
	h.db.First(&group, "id = ?", groupID)

	var members []models.GroupMember
	h.db.Where("group_id = ? AND user_id != ?", groupID, userID).Preload("User").Find(&members)

	for _, m := range members {
		if err := h.mail.SendGoalShared(m.User.Email, goal.Title, group.Name, shared.Code); err != nil {
			h.log.Warn("share email failed",
				zap.String("recipient", m.User.Email), zap.Error(err))
		}
	}

	return c.JSON(fiber.Map{"message": "Goal shared successfully"})
}

func (h *Handler) isGroupMember(groupID, userID uuid.UUID) bool {
	var member models.GroupMember
	return h.db.Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error == nil
}

// notifyMemberJoined writes an in-app notification for the other members.
func (h *Handler) notifyMemberJoined(group models.Group, joinerID uuid.UUID) {
	var joiner models.User
	if err := h.db.First(&joiner, "id = ?", joinerID).Error; err != nil {
		return
	}

	meta, _ := json.Marshal(map[string]string{"groupId": group.ID.String()})
	metaStr := string(meta)

	var members []models.GroupMember
	h.db.Where("group_id = ? AND user_id != ?", group.ID, joinerID).Find(&members)
	for _, m := range members {
		notif := models.Notification{
			UserID:   m.UserID,
			Type:     "member_joined",
			Title:    "New member joined",
			Body:     joiner.Username + " joined " + group.Name,
			Metadata: &metaStr,
		}
		if err := h.db.Create(&notif).Error; err != nil {
			h.log.Warn("notification row not written", zap.Error(err))
		}
	}
}
