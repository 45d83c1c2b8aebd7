package services

import (
	"errors"
	"sort"
	"strings"

	"adminhub/internal/models"
	"adminhub/pkg/apperrors"

	"gorm.io/gorm"
)

// PermissionService 权限服务 - 权限树构建、路径解析与使用统计
type PermissionService struct {
	db    *gorm.DB
	audit *AuditService
}

// PermissionNode 权限树节点
type PermissionNode struct {
	models.Permission
	Children []*PermissionNode `json:"children,omitempty"`
}

// RoleUsage 单个角色对权限的使用情况
type RoleUsage struct {
	RoleID    uint   `json:"role_id"`
	RoleCode  string `json:"role_code"`
	RoleName  string `json:"role_name"`
	UserCount int64  `json:"user_count"`
}

// PermissionUsage 权限使用统计
type PermissionUsage struct {
	PermissionID uint        `json:"permission_id"`
	IsSystem     bool        `json:"is_system"`
	RoleCount    int64       `json:"role_count"`
	Roles        []RoleUsage `json:"roles"`
	Deletable    bool        `json:"deletable"`
}

// PathSeparator 面包屑路径分隔符
const PathSeparator = " > "

// maxTreeDepth 祖先链遍历深度上限，脏数据成环时保证终止
const maxTreeDepth = 64

func NewPermissionService(db *gorm.DB, audit *AuditService) *PermissionService {
	return &PermissionService{db: db, audit: audit}
}

// ========== 树构建（纯内存操作） ==========

// BuildPermissionTree 把扁平权限列表组装成森林
//
// parent_id 为空或指向不在列表中的记录（如被excludeID过滤掉的祖先）时，
// 该节点作为根节点处理。每层子节点按 sort_order、id 排序。
func BuildPermissionTree(permissions []*models.Permission) []*PermissionNode {
	nodes := make(map[uint]*PermissionNode, len(permissions))
	for _, p := range permissions {
		nodes[p.ID] = &PermissionNode{Permission: *p}
	}

	var roots []*PermissionNode
	for _, p := range permissions {
		node := nodes[p.ID]
		if p.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[*p.ParentID]
		if !ok || *p.ParentID == p.ID {
			// 孤儿节点按根处理
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	sortPermissionNodes(roots)
	return roots
}

func sortPermissionNodes(nodes []*PermissionNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].SortOrder != nodes[j].SortOrder {
			return nodes[i].SortOrder < nodes[j].SortOrder
		}
		return nodes[i].ID < nodes[j].ID
	})
	for _, n := range nodes {
		sortPermissionNodes(n.Children)
	}
}

// FlattenPermissionTree 把权限森林展开回扁平列表（先根顺序）
func FlattenPermissionTree(nodes []*PermissionNode) []*models.Permission {
	var result []*models.Permission
	for _, n := range nodes {
		p := n.Permission
		result = append(result, &p)
		result = append(result, FlattenPermissionTree(n.Children)...)
	}
	return result
}

// ResolvePermissionPath 解析权限的面包屑路径（根到叶，用 " > " 连接）
//
// 祖先链有深度上限，parent_id 成环时也能终止；缺失的祖先直接截断。
func ResolvePermissionPath(permissions []*models.Permission, id uint) string {
	byID := make(map[uint]*models.Permission, len(permissions))
	for _, p := range permissions {
		byID[p.ID] = p
	}

	current, ok := byID[id]
	if !ok {
		return ""
	}

	names := []string{current.Name}
	visited := map[uint]bool{current.ID: true}

	for depth := 0; depth < maxTreeDepth && current.ParentID != nil; depth++ {
		parent, ok := byID[*current.ParentID]
		if !ok || visited[parent.ID] {
			break
		}
		visited[parent.ID] = true
		names = append(names, parent.Name)
		current = parent
	}

	// 反转为根到叶顺序
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, PathSeparator)
}

// ========== 查询方法 ==========

// GetByID 根据ID获取权限（租户隔离）
func (s *PermissionService) GetByID(tenantID, id uint) (*models.Permission, error) {
	var permission models.Permission
	err := s.db.Where("tenant_id = ?", tenantID).First(&permission, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound(apperrors.CodeNotFound, "权限不存在")
		}
		return nil, err
	}
	return &permission, nil
}

// GetByTenant 获取租户全部权限（可按类型筛选）
func (s *PermissionService) GetByTenant(tenantID uint, permType string) ([]*models.Permission, error) {
	var permissions []*models.Permission
	query := s.db.Where("tenant_id = ?", tenantID)
	if permType != "" {
		query = query.Where("type = ?", permType)
	}
	err := query.Order("sort_order, id").Find(&permissions).Error
	return permissions, err
}

// GetTree 获取权限树 - excludeID用于"选择上级"场景排除自身及其子树
func (s *PermissionService) GetTree(tenantID, excludeID uint) ([]*PermissionNode, error) {
	permissions, err := s.GetByTenant(tenantID, "")
	if err != nil {
		return nil, err
	}

	if excludeID > 0 {
		excluded := s.collectSubtreeIDs(permissions, excludeID)
		filtered := permissions[:0]
		for _, p := range permissions {
			if !excluded[p.ID] {
				filtered = append(filtered, p)
			}
		}
		permissions = filtered
	}

	return BuildPermissionTree(permissions), nil
}

// collectSubtreeIDs 收集某节点及其全部后代的ID集合
func (s *PermissionService) collectSubtreeIDs(permissions []*models.Permission, rootID uint) map[uint]bool {
	children := make(map[uint][]uint)
	for _, p := range permissions {
		if p.ParentID != nil {
			children[*p.ParentID] = append(children[*p.ParentID], p.ID)
		}
	}

	excluded := map[uint]bool{rootID: true}
	queue := []uint{rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, childID := range children[id] {
			if !excluded[childID] {
				excluded[childID] = true
				queue = append(queue, childID)
			}
		}
	}
	return excluded
}

// GetPath 获取权限的面包屑路径
func (s *PermissionService) GetPath(tenantID, id uint) (string, error) {
	if _, err := s.GetByID(tenantID, id); err != nil {
		return "", err
	}
	permissions, err := s.GetByTenant(tenantID, "")
	if err != nil {
		return "", err
	}
	return ResolvePermissionPath(permissions, id), nil
}

// ========== 变更方法 ==========

// PermissionInput 创建/更新权限的入参
type PermissionInput struct {
	ParentID     *uint
	Code         string
	Name         string
	Description  string
	Type         string
	FrontPath    string
	APIPath      string
	Method       string
	ResourceType string
	SortOrder    int
}

// Create 创建权限
func (s *PermissionService) Create(actor Actor, tenantID uint, input PermissionInput) (*models.Permission, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}
	if input.ParentID != nil {
		if err := s.validateParent(tenantID, 0, *input.ParentID); err != nil {
			return nil, err
		}
	}

	permission := &models.Permission{
		TenantID:     tenantID,
		ParentID:     input.ParentID,
		Code:         input.Code,
		Name:         input.Name,
		Description:  input.Description,
		Type:         input.Type,
		FrontPath:    input.FrontPath,
		APIPath:      input.APIPath,
		Method:       input.Method,
		ResourceType: input.ResourceType,
		SortOrder:    input.SortOrder,
		Status:       models.PermissionStatusActive,
	}

	if err := s.db.Create(permission).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.NewConflict(apperrors.CodeConflict, "权限代码或名称已存在")
		}
		return nil, err
	}

	s.audit.RecordChange(tenantID, actor.UserID, actor.Username, "permission", "create", permission.ID, nil, permission)
	return permission, nil
}

// Update 更新权限
func (s *PermissionService) Update(actor Actor, tenantID, id uint, input PermissionInput) (*models.Permission, error) {
	permission, err := s.GetByID(tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := s.validateInput(input); err != nil {
		return nil, err
	}
	if input.ParentID != nil {
		if err := s.validateParent(tenantID, id, *input.ParentID); err != nil {
			return nil, err
		}
	}

	old := *permission
	permission.ParentID = input.ParentID
	permission.Code = input.Code
	permission.Name = input.Name
	permission.Description = input.Description
	permission.Type = input.Type
	permission.FrontPath = input.FrontPath
	permission.APIPath = input.APIPath
	permission.Method = input.Method
	permission.ResourceType = input.ResourceType
	permission.SortOrder = input.SortOrder

	if err := s.db.Save(permission).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.NewConflict(apperrors.CodeConflict, "权限代码或名称已存在")
		}
		return nil, err
	}

	s.audit.RecordChange(tenantID, actor.UserID, actor.Username, "permission", "update", permission.ID, &old, permission)
	return permission, nil
}

// Delete 删除权限 - 系统权限和仍被角色引用的权限不可删；子节点挂到被删节点的上级
func (s *PermissionService) Delete(actor Actor, tenantID, id uint) error {
	permission, err := s.GetByID(tenantID, id)
	if err != nil {
		return err
	}

	if permission.IsSystem {
		return apperrors.NewForbidden(apperrors.CodeSystemResourceProtected, "系统权限不可删除")
	}

	var roleCount int64
	if err := s.db.Model(&models.RolePermission{}).
		Where("tenant_id = ? AND permission_id = ?", tenantID, id).
		Count(&roleCount).Error; err != nil {
		return err
	}
	if roleCount > 0 {
		return apperrors.NewForbidden(apperrors.CodePermissionInUse, "权限仍被角色引用，不可删除")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Permission{}).
			Where("tenant_id = ? AND parent_id = ?", tenantID, id).
			Update("parent_id", permission.ParentID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Permission{}, id).Error; err != nil {
			return err
		}
		s.audit.RecordChange(tenantID, actor.UserID, actor.Username, "permission", "delete", id, permission, nil)
		return nil
	})
}

// ========== 使用统计 ==========

// GetUsage 统计权限被多少角色引用，以及每个角色下的用户数
func (s *PermissionService) GetUsage(tenantID, permissionID uint) (*PermissionUsage, error) {
	permission, err := s.GetByID(tenantID, permissionID)
	if err != nil {
		return nil, err
	}

	var roles []models.Role
	err = s.db.
		Joins("JOIN role_permissions ON roles.id = role_permissions.role_id").
		Where("role_permissions.tenant_id = ? AND role_permissions.permission_id = ?", tenantID, permissionID).
		Find(&roles).Error
	if err != nil {
		return nil, err
	}

	usage := &PermissionUsage{
		PermissionID: permissionID,
		IsSystem:     permission.IsSystem,
		RoleCount:    int64(len(roles)),
		Roles:        make([]RoleUsage, 0, len(roles)),
	}

	for _, role := range roles {
		var userCount int64
		err := s.db.Model(&models.User{}).
			Where("tenant_id = ? AND role_id = ? AND status <> ?", tenantID, role.ID, models.UserStatusDeleted).
			Count(&userCount).Error
		if err != nil {
			return nil, err
		}
		usage.Roles = append(usage.Roles, RoleUsage{
			RoleID:    role.ID,
			RoleCode:  role.Code,
			RoleName:  role.Name,
			UserCount: userCount,
		})
	}

	// 系统权限无论引用情况一律不可删
	usage.Deletable = !permission.IsSystem && usage.RoleCount == 0
	return usage, nil
}

// ========== 验证方法 ==========

func (s *PermissionService) validateInput(input PermissionInput) error {
	if input.Code == "" || input.Name == "" {
		return apperrors.NewValidation("权限代码和名称不能为空")
	}
	switch input.Type {
	case models.PermissionTypeMenu, models.PermissionTypePage, models.PermissionTypeButton,
		models.PermissionTypeAPI, models.PermissionTypeData:
	default:
		return apperrors.NewValidation("权限类型只能是menu、page、button、api或data")
	}
	if input.Type == models.PermissionTypeAPI && (input.APIPath == "" || input.Method == "") {
		return apperrors.NewValidation("api类型权限必须填写api_path和method")
	}
	if input.Type == models.PermissionTypeData && input.ResourceType == "" {
		return apperrors.NewValidation("data类型权限必须填写resource_type")
	}
	return nil
}

// validateParent 校验上级权限：必须同租户存在，且不构成环
func (s *PermissionService) validateParent(tenantID, id, parentID uint) error {
	if parentID == id {
		return apperrors.NewValidation("上级权限不能是自身")
	}

	var parent models.Permission
	err := s.db.Where("tenant_id = ?", tenantID).First(&parent, parentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewValidation("上级权限不存在或不属于当前租户")
		}
		return err
	}

	// 沿祖先链上溯，遇到自身说明会成环
	current := &parent
	for depth := 0; depth < maxTreeDepth && current.ParentID != nil; depth++ {
		if *current.ParentID == id {
			return apperrors.NewValidation("上级权限不能是自身的下级")
		}
		var next models.Permission
		if err := s.db.Where("tenant_id = ?", tenantID).First(&next, *current.ParentID).Error; err != nil {
			break
		}
		current = &next
	}
	return nil
}
