package api

import (
	"fmt"
	"time"

	"jogosescolares/internal/apperrors"
	"jogosescolares/internal/eligibility"
	"jogosescolares/internal/participant"
	"jogosescolares/internal/user"
	"jogosescolares/internal/util"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type createParticipantRequest struct {
	Kind        eligibility.Kind `json:"kind"`
	SchoolID    uuid.UUID        `json:"school_id"`
	Name        string           `json:"name"`
	Sex         string           `json:"sex"`
	DateOfBirth string           `json:"date_of_birth"`
	CPF         string           `json:"cpf"`
	RG          string           `json:"rg"`
	CREF        string           `json:"cref"`
}

func (h *Handler) CreateParticipant(c *fiber.Ctx) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}

	var req createParticipantRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.SchoolID == uuid.Nil && u.SchoolID.IsSet {
		req.SchoolID = u.SchoolID.Val
	}
	if err := requireSchool(u, req.SchoolID); err != nil {
		return err
	}

	dob, err := time.Parse(time.DateOnly, req.DateOfBirth)
	if err != nil {
		return apperrors.Validation("date_of_birth must be formatted as YYYY-MM-DD").
			WithMetadata("date_of_birth", req.DateOfBirth)
	}

	created, err := h.participants.CreateParticipant(c.UserContext(), participant.CreateParticipantParams{
		ActorID:     u.ID,
		Kind:        req.Kind,
		SchoolID:    req.SchoolID,
		Name:        req.Name,
		Sex:         req.Sex,
		DateOfBirth: dob,
		CPF:         req.CPF,
		RG:          req.RG,
		CREF:        req.CREF,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// ListParticipants scopes school admins to their own school. Staff may
// filter with ?school=.
func (h *Handler) ListParticipants(c *fiber.Ctx) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}

	var params participant.ListParticipantsParams
	switch {
	case u.Role.IsStaff():
		schoolID, ok, err := queryUUID(c, "school")
		if err != nil {
			return err
		}
		if ok {
			params.SchoolID = util.Some(schoolID)
		}
	case u.Role == user.RoleSchoolAdmin && u.SchoolID.IsSet:
		params.SchoolID = u.SchoolID
	default:
		return apperrors.Forbidden("not allowed to list participants")
	}

	participants, err := h.participants.ListParticipants(c.UserContext(), params)
	if err != nil {
		return err
	}
	return c.JSON(participants)
}

// loadParticipant fetches the :id participant and checks u may see it.
func (h *Handler) loadParticipant(c *fiber.Ctx, u user.User) (participant.Participant, error) {
	participantID, err := paramUUID(c, "id")
	if err != nil {
		return participant.Participant{}, err
	}

	p, err := h.participants.GetParticipant(c.UserContext(), participantID)
	if err != nil {
		return participant.Participant{}, err
	}
	if err := requireSchool(u, p.SchoolID); err != nil {
		return participant.Participant{}, err
	}
	return p, nil
}

func (h *Handler) GetParticipant(c *fiber.Ctx) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}

	p, err := h.loadParticipant(c, u)
	if err != nil {
		return err
	}
	return c.JSON(p)
}

type eligibilityResponse struct {
	Eligible   []eligibility.Modality `json:"eligible"`
	Types      []string               `json:"types"`
	Names      []string               `json:"names,omitempty"`
	Categories []eligibility.Category `json:"categories,omitempty"`
	Selected   *eligibility.Category  `json:"selected,omitempty"`
}

// Eligibility walks the participant's funnel for an event. ?type= and ?name=
// narrow it one step at a time; a single remaining category is preselected.
func (h *Handler) Eligibility(c *fiber.Ctx) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}

	p, err := h.loadParticipant(c, u)
	if err != nil {
		return err
	}

	eventID, ok, err := queryUUID(c, "event")
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.Validation("event is required")
	}

	funnel, err := h.resolver.Resolve(c.UserContext(), p.ID, eventID)
	if err != nil {
		return err
	}

	resp := eligibilityResponse{
		Eligible: funnel.Eligible(),
		Types:    funnel.Types(),
	}
	if typ := c.Query("type"); typ != "" {
		resp.Names = funnel.Names(typ)
		if name := c.Query("name"); name != "" {
			resp.Categories = funnel.Categories(typ, name)
			if selected, ok := funnel.AutoSelect(typ, name); ok {
				resp.Selected = &selected
			}
		}
	}
	return c.JSON(resp)
}

func (h *Handler) UploadDocument(c *fiber.Ctx) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}

	p, err := h.loadParticipant(c, u)
	if err != nil {
		return err
	}

	header, err := c.FormFile("file")
	if err != nil {
		return apperrors.Wrap(apperrors.KindValidation, "file is required", err)
	}
	file, err := header.Open()
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	doc, err := h.participants.AttachDocument(c.UserContext(), participant.AttachDocumentParams{
		ActorID:       u.ID,
		ParticipantID: p.ID,
		Name:          header.Filename,
		ContentType:   header.Header.Get(fiber.HeaderContentType),
		Content:       file,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(doc)
}

func (h *Handler) DownloadDocument(c *fiber.Ctx) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}

	p, err := h.loadParticipant(c, u)
	if err != nil {
		return err
	}
	documentID, err := paramUUID(c, "documentID")
	if err != nil {
		return err
	}

	doc, content, err := h.participants.OpenDocument(c.UserContext(), p.ID, documentID)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, doc.ContentType)
	c.Attachment(doc.Name)
	return c.SendStream(content)
}
