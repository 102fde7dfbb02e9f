package authz

// defaultPolicies permit superusers everything and let other principals add
// records when they hold the collection's add permission codename.
const defaultPolicies = `
permit(
  principal,
  action,
  resource
) when {
  principal.superuser
};

permit(
  principal,
  action == Autofilter::Action::"add",
  resource
) when {
  resource has addPermission &&
  principal.permissions.contains(resource.addPermission)
};
`
